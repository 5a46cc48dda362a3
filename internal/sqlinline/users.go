package sqlinline

const QSelectUserPlanByEmail = `--sql e9b72521-0802-4d00-b617-caa50578db5f
select id, email, plan, usage_count, usage_limit
from users
where lower(email) = lower($1::text)
limit 1;
`

const QSelectUserPlanByID = `--sql cd2247e4-e398-46b0-bf9f-9d4f0e204f29
select id, email, plan, usage_count, usage_limit
from users
where id = $1::uuid
limit 1;
`

// QUpdateUserPlan sets plan and limit; $4 resets the usage counter.
const QUpdateUserPlan = `--sql 02abb007-e251-4818-9002-bf9256bbb743
update users
set plan = $2::text,
    usage_limit = $3::int,
    usage_count = case when $4::boolean then 0 else usage_count end,
    updated_at = now()
where id = $1::uuid
returning id, email, plan, usage_count, usage_limit;
`

// QEnsureUser registers a user on first sight with the free plan.
const QEnsureUser = `--sql 69cb28f7-e419-4bd0-87d4-2eaf3ff5f2c1
insert into users (id, email, plan, usage_count, usage_limit, created_at, updated_at)
values ($1::uuid, $2::text, 'Free', 0, $3::int, now(), now())
on conflict (id) do nothing;
`
