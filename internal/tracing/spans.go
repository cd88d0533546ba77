package tracing

// Span attribute keys.
const (
	AttrGuildID   = "guild.id"
	AttrClanID    = "clan.id"
	AttrClanTag   = "clan.tag"
	AttrActorID   = "actor.id"
	AttrMemberID  = "member.id"
	AttrStep      = "session.step"
	AttrOutcome   = "outcome"
	AttrFailures  = "grant.failures"
	AttrCustomID  = "interaction.custom_id"
	AttrErrorType = "error.type"
)

// Span names.
const (
	SpanCreate       = "clan.create"
	SpanJoin         = "clan.join"
	SpanLeave        = "clan.leave"
	SpanEditInfo     = "clan.edit_info"
	SpanEditRoster   = "clan.edit_roster"
	SpanDissolve     = "clan.dissolve"
	SpanSync         = "artifacts.sync"
	SpanJoinPanel    = "artifacts.join_panel"
	SpanInteraction  = "bot.interaction"
	SpanEmblemWait   = "registration.emblem_wait"
	SpanConfirmDraft = "registration.confirm"
)

// Event names.
const (
	EventRejected        = "rejected"
	EventRoleCreated     = "role.created"
	EventRecordCommitted = "record.committed"
	EventCompensated     = "compensated"
	EventLeaderPromoted  = "leader.promoted"
	EventStepFailed      = "step.failed"
)

// Outcome values.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)
