package render

import "strings"

// Component custom ids. Prefixes route interactions in the dispatcher.
const (
	PrefixCreate = "clan_create_"
	PrefixManage = "clan_manage_"
	PrefixJoin   = "insignia_"

	IDCreateStart   = "clan_create_start"
	IDCreateStep1   = "clan_create_step1_button"
	IDCreateStep2   = "clan_create_step2_button"
	IDCreateStep3   = "clan_create_step3_button"
	IDEmblemSkip    = "clan_create_emblem_skip"
	IDCreateConfirm = "clan_create_confirm"
	IDCreateEdit    = "clan_create_edit"
	IDCreateCancel  = "clan_create_cancel"

	// IDEditStepPrefix is followed by the step number, 1 to 3.
	IDEditStepPrefix = "clan_create_edit_step"

	FormBasicInfo  = "clan_create_step1_modal"
	FormLeaderInfo = "clan_create_step2_modal"
	FormRoster     = "clan_create_step3_modal"

	IDManageEditInfo   = "clan_manage_edit_info"
	IDManageEditRoster = "clan_manage_edit_roster"
	IDManageDelete     = "clan_manage_delete"

	IDManageDeleteConfirmPrefix = "clan_manage_delete_confirm_"
	IDManageDeleteCancelPrefix  = "clan_manage_delete_cancel_"

	FormManageInfo   = "clan_manage_edit_info_modal"
	FormManageRoster = "clan_manage_edit_roster_modal"

	IDJoinSelect   = "insignia_clan_select"
	FormJoinPrefix = "insignia_join_modal_"
	IDLeave        = "insignia_leave_clan"
)

// Form input ids.
const (
	FieldTag         = "clan_tag"
	FieldName        = "clan_name"
	FieldDescription = "clan_description"
	FieldColor       = "clan_color"
	FieldServer      = "clan_server"
	FieldLeaderNick  = "leader_nick"
	FieldLeaderGame  = "leader_steamid"
	FieldRoster      = "clan_roster"
	FieldJoinNick    = "insignia_nick"
	FieldJoinGame    = "insignia_steamid"
)

// Suffix returns the part of id after prefix and whether id had it.
func Suffix(id, prefix string) (string, bool) {
	if !strings.HasPrefix(id, prefix) || len(id) == len(prefix) {
		return "", false
	}
	return id[len(prefix):], true
}
