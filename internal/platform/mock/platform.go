package mock

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/zjrosen/clanbot/internal/platform"
)

// Operation names recorded in Calls.
const (
	OpCreateRole       = "CreateRole"
	OpEditRole         = "EditRole"
	OpDeleteRole       = "DeleteRole"
	OpAddMemberRole    = "AddMemberRole"
	OpRemoveMemberRole = "RemoveMemberRole"
	OpFetchMember      = "FetchMember"
	OpSetNickname      = "SetNickname"
	OpGuildOwner       = "GuildOwner"
	OpSendMessage      = "SendMessage"
	OpEditMessage      = "EditMessage"
	OpDeleteMessage    = "DeleteMessage"
)

// Call is one recorded platform call.
type Call struct {
	Op   string
	Args []string
}

type failure struct {
	op    string
	match string // empty matches any call
	err   error
	once  bool
}

// Platform is an in-memory platform.Platform.
type Platform struct {
	mu       sync.Mutex
	nextID   int
	owner    string
	roles    map[string]platform.Role
	members  map[string]*platform.Member
	messages map[platform.MessageRef]platform.Message
	calls    []Call
	failures []failure
}

var _ platform.Platform = (*Platform)(nil)

// NewPlatform creates an empty guild owned by ownerID.
func NewPlatform(ownerID string) *Platform {
	return &Platform{
		owner:    ownerID,
		roles:    map[string]platform.Role{},
		members:  map[string]*platform.Member{},
		messages: map[platform.MessageRef]platform.Message{},
	}
}

// AddMember puts a member in the guild.
func (p *Platform) AddMember(m platform.Member) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := m
	cp.Roles = slices.Clone(m.Roles)
	p.members[m.ID] = &cp
}

// AddMembers adds bare members with the given ids.
func (p *Platform) AddMembers(ids ...string) {
	for _, id := range ids {
		p.AddMember(platform.Member{ID: id, Username: "user" + id})
	}
}

// RemoveMember drops a member from the guild.
func (p *Platform) RemoveMember(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.members, id)
}

// Member returns a copy of the member state.
func (p *Platform) Member(id string) (platform.Member, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.members[id]
	if !ok {
		return platform.Member{}, false
	}
	cp := *m
	cp.Roles = slices.Clone(m.Roles)
	return cp, true
}

// Role returns a created role.
func (p *Platform) Role(id string) (platform.Role, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.roles[id]
	return r, ok
}

// RoleCount returns the number of live roles.
func (p *Platform) RoleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.roles)
}

// Message returns the current content at ref.
func (p *Platform) Message(ref platform.MessageRef) (platform.Message, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.messages[ref]
	return m, ok
}

// MessageCount returns the number of live messages.
func (p *Platform) MessageCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}

// Fail makes every call to op return err.
func (p *Platform) Fail(op string, err error) {
	p.addFailure(failure{op: op, err: err})
}

// FailWhen makes calls to op fail when any argument equals match.
func (p *Platform) FailWhen(op, match string, err error) {
	p.addFailure(failure{op: op, match: match, err: err})
}

// FailOnce makes the next call to op fail.
func (p *Platform) FailOnce(op string, err error) {
	p.addFailure(failure{op: op, err: err, once: true})
}

// ClearFailures removes all injected failures.
func (p *Platform) ClearFailures() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = nil
}

func (p *Platform) addFailure(f failure) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = append(p.failures, f)
}

// Calls returns every recorded call in order.
func (p *Platform) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.calls)
}

// Ops returns the recorded operation names in order.
func (p *Platform) Ops() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ops := make([]string, len(p.calls))
	for i, c := range p.calls {
		ops[i] = c.Op
	}
	return ops
}

// CallsTo returns the recorded calls of one operation.
func (p *Platform) CallsTo(op string) []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Call
	for _, c := range p.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls clears the call log.
func (p *Platform) ResetCalls() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
}

// record logs the call and returns an injected failure, if any. Callers
// hold p.mu.
func (p *Platform) record(op string, args ...string) error {
	p.calls = append(p.calls, Call{Op: op, Args: args})
	for i, f := range p.failures {
		if f.op != op {
			continue
		}
		if f.match != "" && !slices.Contains(args, f.match) {
			continue
		}
		if f.once {
			p.failures = slices.Delete(p.failures, i, i+1)
		}
		return f.err
	}
	return nil
}

func (p *Platform) newID(prefix string) string {
	p.nextID++
	return prefix + "-" + strconv.Itoa(p.nextID)
}

func (p *Platform) CreateRole(ctx context.Context, guildID string, spec platform.RoleSpec) (platform.Role, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record(OpCreateRole, guildID, spec.Name); err != nil {
		return platform.Role{}, err
	}
	role := platform.Role{ID: p.newID("role"), Name: spec.Name, Color: spec.Color}
	p.roles[role.ID] = role
	return role, nil
}

func (p *Platform) EditRole(ctx context.Context, guildID, roleID string, spec platform.RoleSpec) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record(OpEditRole, guildID, roleID, spec.Name); err != nil {
		return err
	}
	if _, ok := p.roles[roleID]; !ok {
		return fmt.Errorf("edit role %s: %w", roleID, platform.ErrNotFound)
	}
	p.roles[roleID] = platform.Role{ID: roleID, Name: spec.Name, Color: spec.Color}
	return nil
}

func (p *Platform) DeleteRole(ctx context.Context, guildID, roleID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record(OpDeleteRole, guildID, roleID); err != nil {
		return err
	}
	if _, ok := p.roles[roleID]; !ok {
		return fmt.Errorf("delete role %s: %w", roleID, platform.ErrNotFound)
	}
	delete(p.roles, roleID)
	for _, m := range p.members {
		m.Roles = slices.DeleteFunc(m.Roles, func(r string) bool { return r == roleID })
	}
	return nil
}

func (p *Platform) AddMemberRole(ctx context.Context, guildID, userID, roleID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record(OpAddMemberRole, guildID, userID, roleID); err != nil {
		return err
	}
	m, ok := p.members[userID]
	if !ok {
		return fmt.Errorf("add role to %s: %w", userID, platform.ErrNotFound)
	}
	if !slices.Contains(m.Roles, roleID) {
		m.Roles = append(m.Roles, roleID)
	}
	return nil
}

func (p *Platform) RemoveMemberRole(ctx context.Context, guildID, userID, roleID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record(OpRemoveMemberRole, guildID, userID, roleID); err != nil {
		return err
	}
	m, ok := p.members[userID]
	if !ok {
		return fmt.Errorf("remove role from %s: %w", userID, platform.ErrNotFound)
	}
	m.Roles = slices.DeleteFunc(m.Roles, func(r string) bool { return r == roleID })
	return nil
}

func (p *Platform) FetchMember(ctx context.Context, guildID, userID string) (platform.Member, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record(OpFetchMember, guildID, userID); err != nil {
		return platform.Member{}, err
	}
	m, ok := p.members[userID]
	if !ok {
		return platform.Member{}, fmt.Errorf("member %s: %w", userID, platform.ErrNotFound)
	}
	cp := *m
	cp.Roles = slices.Clone(m.Roles)
	return cp, nil
}

func (p *Platform) SetNickname(ctx context.Context, guildID, userID, nickname string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record(OpSetNickname, guildID, userID, nickname); err != nil {
		return err
	}
	m, ok := p.members[userID]
	if !ok {
		return fmt.Errorf("nickname %s: %w", userID, platform.ErrNotFound)
	}
	m.Nickname = nickname
	return nil
}

func (p *Platform) GuildOwner(ctx context.Context, guildID string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record(OpGuildOwner, guildID); err != nil {
		return "", err
	}
	return p.owner, nil
}

func (p *Platform) SendMessage(ctx context.Context, channelID string, msg platform.Message) (platform.MessageRef, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record(OpSendMessage, channelID); err != nil {
		return platform.MessageRef{}, err
	}
	ref := platform.MessageRef{ChannelID: channelID, MessageID: p.newID("msg")}
	p.messages[ref] = msg
	return ref, nil
}

func (p *Platform) EditMessage(ctx context.Context, ref platform.MessageRef, msg platform.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record(OpEditMessage, ref.ChannelID, ref.MessageID); err != nil {
		return err
	}
	if _, ok := p.messages[ref]; !ok {
		return fmt.Errorf("edit message %s: %w", ref.MessageID, platform.ErrNotFound)
	}
	p.messages[ref] = msg
	return nil
}

func (p *Platform) DeleteMessage(ctx context.Context, ref platform.MessageRef) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record(OpDeleteMessage, ref.ChannelID, ref.MessageID); err != nil {
		return err
	}
	if _, ok := p.messages[ref]; !ok {
		return fmt.Errorf("delete message %s: %w", ref.MessageID, platform.ErrNotFound)
	}
	delete(p.messages, ref)
	return nil
}
