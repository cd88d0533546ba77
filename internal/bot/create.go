package bot

import (
	"context"
	"strconv"

	"github.com/zjrosen/clanbot/internal/clan/domain"
	"github.com/zjrosen/clanbot/internal/config"
	"github.com/zjrosen/clanbot/internal/log"
	"github.com/zjrosen/clanbot/internal/platform"
	"github.com/zjrosen/clanbot/internal/registration"
	"github.com/zjrosen/clanbot/internal/render"
)

func preview(s registration.Session) render.ClanPreview {
	return render.ClanPreview{
		Info:      s.Draft.Info,
		Leader:    s.Draft.Leader,
		Roster:    s.Draft.Roster,
		EmblemURL: s.Draft.EmblemURL,
		Started:   s.Started,
	}
}

func infoFromForm(in platform.Interaction) domain.Info {
	return domain.Info{
		Tag:         in.Field(render.FieldTag),
		Name:        in.Field(render.FieldName),
		Description: in.Field(render.FieldDescription),
		Color:       in.Field(render.FieldColor),
		Server:      in.Field(render.FieldServer),
	}
}

func stepOf(customID string) registration.Step {
	switch customID {
	case render.IDCreateStep1:
		return registration.StepBasicInfo
	case render.IDCreateStep2:
		return registration.StepLeaderInfo
	case render.IDCreateStep3:
		return registration.StepRoster
	}
	return 0
}

func (b *Bot) startRegistration(ctx context.Context, in platform.Interaction, r platform.Responder) error {
	sess, err := b.wizard.Start(ctx, in.GuildID, in.User.ID)
	if err != nil {
		return err
	}
	return r.Reply(ctx, b.render.WizardStep(int(sess.Step), preview(sess), in.User.DisplayName()), true)
}

// stepForm is the form for one of the three form steps.
func (b *Bot) stepForm(sess registration.Session, step registration.Step) (platform.Form, bool) {
	switch step {
	case registration.StepBasicInfo:
		return b.render.BasicInfoForm(render.FormBasicInfo, sess.Draft.Info), true
	case registration.StepLeaderInfo:
		return b.render.LeaderInfoForm(sess.Draft.Leader), true
	case registration.StepRoster:
		return b.render.RosterForm(render.FormRoster, sess.Draft.Roster, true), true
	}
	return platform.Form{}, false
}

func (b *Bot) openStepForm(ctx context.Context, in platform.Interaction, r platform.Responder) error {
	sess, err := b.wizard.Session(ctx, in.GuildID, in.User.ID)
	if err != nil {
		return err
	}
	step := stepOf(in.CustomID)
	form, ok := b.stepForm(sess, step)
	if !ok || sess.Step != step {
		return domain.ErrWrongStep
	}
	return r.ShowForm(ctx, form)
}

func (b *Bot) submitBasicInfo(ctx context.Context, in platform.Interaction, r platform.Responder) error {
	sess, err := b.wizard.SubmitBasicInfo(ctx, in.GuildID, in.User.ID, infoFromForm(in))
	if err != nil {
		return err
	}
	return b.showStep(ctx, in, r, sess)
}

func (b *Bot) submitLeaderInfo(ctx context.Context, in platform.Interaction, r platform.Responder) error {
	sess, err := b.wizard.SubmitLeaderInfo(ctx, in.GuildID, in.User.ID, in.Field(render.FieldLeaderNick), in.Field(render.FieldLeaderGame))
	if err != nil {
		return err
	}
	return b.showStep(ctx, in, r, sess)
}

func (b *Bot) submitRoster(ctx context.Context, in platform.Interaction, r platform.Responder) error {
	sess, err := b.wizard.SubmitRoster(ctx, in.GuildID, in.User.ID, in.Field(render.FieldRoster))
	if err != nil {
		return err
	}
	return b.showStep(ctx, in, r, sess)
}

// showStep replaces the wizard message with the screen for the session's
// current step. The emblem step also runs the wait.
func (b *Bot) showStep(ctx context.Context, in platform.Interaction, r platform.Responder, sess registration.Session) error {
	switch sess.Step {
	case registration.StepConfirm:
		return r.Update(ctx, b.render.Confirmation(preview(sess), b.now()))
	case registration.StepEmblemWait:
		if err := r.Update(ctx, b.render.EmblemPrompt(preview(sess), b.wizard.EmblemTimeout())); err != nil {
			return err
		}
		return b.awaitEmblem(ctx, in, r)
	}
	return r.Update(ctx, b.render.WizardStep(int(sess.Step), preview(sess), in.User.DisplayName()))
}

func (b *Bot) awaitEmblem(ctx context.Context, in platform.Interaction, r platform.Responder) error {
	sess, result, err := b.wizard.AwaitEmblem(ctx, in.GuildID, in.User.ID, in.ChannelID)
	if err != nil {
		return err
	}
	log.Debug(log.CatBot, "Emblem step done", "user_id", in.User.ID, "result", int(result))

	msg := b.render.Confirmation(preview(sess), b.now())
	switch result {
	case registration.EmblemAttached:
		msg.Content = "✅ Emblem received. " + msg.Content
	case registration.EmblemTimedOut:
		msg.Content = "⏱️ No emblem received in time, continuing without one. " + msg.Content
	}
	return r.FollowUp(ctx, msg, true)
}

// staleSkip answers a skip press that no emblem wait consumed. Once the
// emblem step is over the press lost the race and is acknowledged quietly.
func (b *Bot) staleSkip(ctx context.Context, in platform.Interaction, r platform.Responder) error {
	sess, err := b.wizard.Session(ctx, in.GuildID, in.User.ID)
	if err != nil {
		return err
	}
	if sess.Step == registration.StepConfirm || sess.Editing {
		log.Debug(log.CatBot, "Ignoring late emblem skip", "user_id", in.User.ID)
		return r.Defer(ctx, true)
	}
	return domain.ErrWrongStep
}

func (b *Bot) confirmRegistration(ctx context.Context, in platform.Interaction, r platform.Responder) error {
	if err := r.Defer(ctx, true); err != nil {
		return err
	}
	res, err := b.wizard.Confirm(ctx, in.GuildID, in.User.ID)
	if err != nil {
		return err
	}
	return r.FollowUp(ctx, b.render.Created(res.Clan, res.GrantFailures), true)
}

func (b *Bot) chooseEdit(ctx context.Context, in platform.Interaction, r platform.Responder) error {
	sess, err := b.wizard.Session(ctx, in.GuildID, in.User.ID)
	if err != nil {
		return err
	}
	if sess.Step != registration.StepConfirm && !sess.Editing {
		return domain.ErrWrongStep
	}
	return r.Update(ctx, b.render.EditChooser())
}

func (b *Bot) editStep(ctx context.Context, in platform.Interaction, r platform.Responder) error {
	n, _ := render.Suffix(in.CustomID, render.IDEditStepPrefix)
	num, err := strconv.Atoi(n)
	if err != nil {
		return domain.ErrWrongStep
	}
	step := registration.Step(num)
	sess, err := b.wizard.Edit(ctx, in.GuildID, in.User.ID, step)
	if err != nil {
		return err
	}
	form, ok := b.stepForm(sess, step)
	if !ok {
		return domain.ErrWrongStep
	}
	return r.ShowForm(ctx, form)
}

func (b *Bot) cancelRegistration(ctx context.Context, in platform.Interaction, r platform.Responder) error {
	if err := b.wizard.Cancel(ctx, in.GuildID, in.User.ID); err != nil {
		return err
	}
	return r.Update(ctx, b.notice(config.ColorDanger, "❌ Registration cancelled. Nothing was saved."))
}
