package domain

import (
	"regexp"
	"strings"
)

var (
	gameIDPattern = regexp.MustCompile(`^\d{17}$`)
	chatIDPattern = regexp.MustCompile(`^\d{17,19}$`)
)

// RosterLineShape is the expected shape of one roster line.
const RosterLineShape = "nickname, gameID, chatID"

// Identity identifies one clan member across the game and the chat platform.
type Identity struct {
	Nickname string
	GameID   string // 17-digit game account id
	ChatID   string // 17-19 digit chat platform user id
}

// Line renders the identity as a roster line.
func (i Identity) Line() string {
	return i.Nickname + ", " + i.GameID + ", " + i.ChatID
}

// Matches reports whether either id equals the identity's id of the same
// kind. Empty lookup ids never match.
func (i Identity) Matches(chatID, gameID string) bool {
	return (chatID != "" && i.ChatID == chatID) || (gameID != "" && i.GameID == gameID)
}

// ValidGameID reports whether s is a well-formed game account id.
func ValidGameID(s string) bool {
	return gameIDPattern.MatchString(s)
}

// ValidChatID reports whether s is a well-formed chat platform user id.
func ValidChatID(s string) bool {
	return chatIDPattern.MatchString(s)
}

// Roster is the ordered member list of a clan, excluding the leader.
type Roster []Identity

// ParseRoster parses one member per non-blank line. Lines are numbered from
// 1 counting blank lines, so the number matches what the user typed.
func ParseRoster(text string) (Roster, error) {
	var (
		roster    Roster
		seenGame  = map[string]int{}
		seenChat  = map[string]int{}
		lineCount = 0
	)

	for _, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		lineCount++
		if strings.TrimSpace(raw) == "" {
			continue
		}
		id, err := parseRosterLine(lineCount, raw)
		if err != nil {
			return nil, err
		}
		if first, ok := seenGame[id.GameID]; ok {
			return nil, &DuplicateInListError{Line: lineCount, FirstLine: first, Field: "game id", Value: id.GameID}
		}
		if first, ok := seenChat[id.ChatID]; ok {
			return nil, &DuplicateInListError{Line: lineCount, FirstLine: first, Field: "chat id", Value: id.ChatID}
		}
		seenGame[id.GameID] = lineCount
		seenChat[id.ChatID] = lineCount
		roster = append(roster, id)
	}
	return roster, nil
}

func parseRosterLine(n int, raw string) (Identity, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 3 {
		return Identity{}, &FormatError{Line: n, Content: strings.TrimSpace(raw), Reason: "expected " + RosterLineShape}
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	id := Identity{Nickname: parts[0], GameID: parts[1], ChatID: parts[2]}
	switch {
	case id.Nickname == "":
		return Identity{}, &FormatError{Line: n, Content: strings.TrimSpace(raw), Reason: "nickname is empty"}
	case !ValidGameID(id.GameID):
		return Identity{}, &FormatError{Line: n, Content: strings.TrimSpace(raw), Reason: "game id must be exactly 17 digits"}
	case !ValidChatID(id.ChatID):
		return Identity{}, &FormatError{Line: n, Content: strings.TrimSpace(raw), Reason: "chat id must be 17-19 digits"}
	}
	return id, nil
}

// String serializes the roster one line per member.
func (r Roster) String() string {
	lines := make([]string, len(r))
	for i, id := range r {
		lines[i] = id.Line()
	}
	return strings.Join(lines, "\n")
}

// IndexOfChat returns the position of the member with chatID, or -1.
func (r Roster) IndexOfChat(chatID string) int {
	for i, id := range r {
		if id.ChatID == chatID {
			return i
		}
	}
	return -1
}

// Without returns a copy of the roster with position i removed.
func (r Roster) Without(i int) Roster {
	out := make(Roster, 0, len(r))
	out = append(out, r[:i]...)
	return append(out, r[i+1:]...)
}

// Diff compares two rosters by chat id.
func (r Roster) Diff(next Roster) (added, removed Roster) {
	old := make(map[string]struct{}, len(r))
	for _, id := range r {
		old[id.ChatID] = struct{}{}
	}
	cur := make(map[string]struct{}, len(next))
	for _, id := range next {
		cur[id.ChatID] = struct{}{}
		if _, ok := old[id.ChatID]; !ok {
			added = append(added, id)
		}
	}
	for _, id := range r {
		if _, ok := cur[id.ChatID]; !ok {
			removed = append(removed, id)
		}
	}
	return added, removed
}
