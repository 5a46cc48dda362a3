// Package i18n holds the user-facing messages of the editor in French and
// English and the locale matching used by the HTTP layer.
package i18n

import (
	"errors"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"lumina/internal/domain"
)

// Key identifies a translatable message.
type Key string

const (
	MsgUploadInvalid     Key = "upload.invalid_request"
	MsgUploadServerFault Key = "upload.server_fault"
	MsgUploadNetwork     Key = "upload.network"
	MsgUploadFailed      Key = "upload.failed"
	MsgLimitReached      Key = "quota.limit_reached"
	MsgProcessingFailed  Key = "job.processing_failed"
	MsgNoImage           Key = "image.required"
	MsgNotImage          Key = "image.not_image"
	MsgFileTooLarge      Key = "image.too_large"
	MsgUnknownEffect     Key = "effect.unknown"
	MsgEmptyPrompt       Key = "prompt.empty"
	MsgNoPendingPrompt   Key = "prompt.none_pending"
	MsgNothingToExport   Key = "export.nothing"
	MsgBadFormat         Key = "export.bad_format"
	MsgNoComparison      Key = "compare.unavailable"
	MsgCheckoutFailed    Key = "checkout.failed"
	MsgNotFound          Key = "generic.not_found"
	MsgInternal          Key = "generic.internal"
)

type translation struct{ fr, en string }

var translations = map[Key]translation{
	MsgUploadInvalid:     {"Requête d'upload invalide", "Invalid upload request"},
	MsgUploadServerFault: {"Erreur du serveur ImageKit", "The image server returned an error"},
	MsgUploadNetwork:     {"Erreur de réseau lors de l'upload", "Network error during upload"},
	MsgUploadFailed:      {"Upload échoué", "Upload failed"},
	MsgLimitReached:      {"Limite d'utilisation atteinte (%d/%d). Passez au plan Pro pour continuer.", "Usage limit reached (%d/%d). Upgrade to Pro to continue."},
	MsgProcessingFailed:  {"Le traitement de l'image a échoué", "Image processing failed"},
	MsgNoImage:           {"Importez d'abord une image", "Upload an image first"},
	MsgNotImage:          {"Le fichier doit être une image", "The file must be an image"},
	MsgFileTooLarge:      {"Le fichier dépasse la taille maximale de 10 Mo", "The file exceeds the 10 MB limit"},
	MsgUnknownEffect:     {"Effet inconnu", "Unknown effect"},
	MsgEmptyPrompt:       {"Veuillez saisir une description", "Please enter a prompt"},
	MsgNoPendingPrompt:   {"Aucun effet n'attend de description", "No effect is waiting for a prompt"},
	MsgNothingToExport:   {"Aucune image traitée à exporter", "No processed image to export"},
	MsgBadFormat:         {"Format d'export non pris en charge", "Unsupported export format"},
	MsgNoComparison:      {"Aucun résultat à comparer pour le moment", "Nothing to compare yet"},
	MsgCheckoutFailed:    {"Impossible de créer la session de paiement", "Could not create the checkout session"},
	MsgNotFound:          {"Introuvable", "Not found"},
	MsgInternal:          {"Une erreur est survenue", "Something went wrong"},
}

var (
	supported = []language.Tag{language.French, language.English}
	matcher   = language.NewMatcher(supported)
	messages  = newCatalog()
)

// Default is the locale used when nothing in the request matches.
var Default = language.French

func newCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(Default))
	for key, tr := range translations {
		_ = b.SetString(language.French, string(key), tr.fr)
		_ = b.SetString(language.English, string(key), tr.en)
	}
	return b
}

// Match picks the best supported locale for an Accept-Language style list.
// ok is false when no supported language is acceptable.
func Match(accept string) (tag language.Tag, ok bool) {
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return Default, false
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Default, false
	}
	return supported[idx], true
}

var francophone = map[string]bool{
	"FR": true, "BE": true, "CH": true, "LU": true, "MC": true, "CA": true,
	"SN": true, "CI": true, "MA": true, "TN": true, "DZ": true, "CM": true,
}

// ForCountry maps an ISO country code to a supported locale.
func ForCountry(country string) (language.Tag, bool) {
	country = strings.ToUpper(strings.TrimSpace(country))
	if country == "" {
		return Default, false
	}
	if francophone[country] {
		return language.French, true
	}
	return language.English, true
}

// Parse returns the supported tag for a stored locale string.
func Parse(locale string) language.Tag {
	tag, _ := Match(locale)
	return tag
}

// T renders a message in the given locale.
func T(locale string, key Key, args ...any) string {
	p := message.NewPrinter(Parse(locale), message.Catalog(messages))
	return p.Sprintf(message.Key(string(key), translations[key].en), args...)
}

// KeyFor maps a domain error to its user message key.
func KeyFor(err error) Key {
	switch {
	case errors.Is(err, domain.ErrUploadInvalidRequest):
		return MsgUploadInvalid
	case errors.Is(err, domain.ErrUploadServerFault):
		return MsgUploadServerFault
	case errors.Is(err, domain.ErrUploadNetwork):
		return MsgUploadNetwork
	case errors.Is(err, domain.ErrUploadFailed):
		return MsgUploadFailed
	case errors.Is(err, domain.ErrQuotaExceeded):
		return MsgLimitReached
	case errors.Is(err, domain.ErrProcessingFailed):
		return MsgProcessingFailed
	case errors.Is(err, domain.ErrNoImage):
		return MsgNoImage
	case errors.Is(err, domain.ErrNotImage), errors.Is(err, domain.ErrNoFile):
		return MsgNotImage
	case errors.Is(err, domain.ErrFileTooLarge):
		return MsgFileTooLarge
	case errors.Is(err, domain.ErrUnknownEffect):
		return MsgUnknownEffect
	case errors.Is(err, domain.ErrEmptyPrompt):
		return MsgEmptyPrompt
	case errors.Is(err, domain.ErrNoPendingPrompt):
		return MsgNoPendingPrompt
	case errors.Is(err, domain.ErrNothingToExport):
		return MsgNothingToExport
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return MsgBadFormat
	case errors.Is(err, domain.ErrNoComparison):
		return MsgNoComparison
	case errors.Is(err, domain.ErrCheckoutFailed):
		return MsgCheckoutFailed
	case errors.Is(err, domain.ErrNotFound):
		return MsgNotFound
	default:
		return MsgInternal
	}
}

// ErrorMessage renders the user message for err. Limit errors carry the
// counts that were hit.
func ErrorMessage(locale string, err error) string {
	key := KeyFor(err)
	var limit *domain.LimitReachedError
	if errors.As(err, &limit) {
		return T(locale, key, limit.Quota.UsageCount, limit.Quota.UsageLimit)
	}
	if key == MsgLimitReached {
		return T(locale, MsgUploadFailed)
	}
	return T(locale, key)
}
