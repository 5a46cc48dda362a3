package sqlinline

// QSelectUsage returns the quota counters of one user.
const QSelectUsage = `--sql 048f6306-cb68-4232-9f72-df6aae73cba1
select usage_count, usage_limit, plan
from users
where id = $1::uuid
limit 1;
`

// QIncrementUsage consumes one unit of quota. No row is returned when the
// user is already at the limit.
const QIncrementUsage = `--sql 3efd084f-d01e-43ed-8d23-6053825a9e74
update users
set usage_count = usage_count + 1,
    updated_at = now()
where id = $1::uuid
  and usage_count < usage_limit
returning usage_count, usage_limit, plan;
`
