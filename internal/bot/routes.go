package bot

import (
	"context"
	"strings"

	"github.com/zjrosen/clanbot/internal/platform"
	"github.com/zjrosen/clanbot/internal/render"
)

type handler func(ctx context.Context, in platform.Interaction, r platform.Responder) error

type prefixRoute struct {
	prefix string
	h      handler
}

func (b *Bot) routes() {
	b.exact = map[string]handler{
		render.IDCreateStart:   b.startRegistration,
		render.IDCreateStep1:   b.openStepForm,
		render.IDCreateStep2:   b.openStepForm,
		render.IDCreateStep3:   b.openStepForm,
		render.FormBasicInfo:   b.submitBasicInfo,
		render.FormLeaderInfo:  b.submitLeaderInfo,
		render.FormRoster:      b.submitRoster,
		render.IDEmblemSkip:    b.staleSkip,
		render.IDCreateConfirm: b.confirmRegistration,
		render.IDCreateEdit:    b.chooseEdit,
		render.IDCreateCancel:  b.cancelRegistration,

		render.IDManageEditInfo:   b.openEditInfo,
		render.FormManageInfo:     b.submitEditInfo,
		render.IDManageEditRoster: b.openEditRoster,
		render.FormManageRoster:   b.submitEditRoster,
		render.IDManageDelete:     b.requestDissolution,

		render.IDJoinSelect: b.openJoinForm,
		render.IDLeave:      b.leave,
	}
	// Longer prefixes first: the edit step prefix shares clan_create_.
	b.prefixed = []prefixRoute{
		{render.IDManageDeleteConfirmPrefix, b.confirmDissolution},
		{render.IDManageDeleteCancelPrefix, b.cancelDissolution},
		{render.IDEditStepPrefix, b.editStep},
		{render.FormJoinPrefix, b.submitJoin},
	}
}

func (b *Bot) route(customID string) (handler, bool) {
	if h, ok := b.exact[customID]; ok {
		return h, true
	}
	for _, p := range b.prefixed {
		if strings.HasPrefix(customID, p.prefix) {
			return p.h, true
		}
	}
	return nil, false
}
