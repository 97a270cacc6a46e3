package scan

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/edgard/birthdaybot/internal/birthday"
	"github.com/edgard/birthdaybot/internal/database"
)

var errTransport = errors.New("telegram: Forbidden")

type fakeMessenger struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
	link  string
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{fail: map[string]error{}, link: "https://t.me/+abc"}
}

// record fails like an HTTP client would once ctx is done, without the call reaching the API.
func (f *fakeMessenger) record(ctx context.Context, method, call string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.fail[method]
}

func (f *fakeMessenger) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeMessenger) SendGroupMessage(ctx context.Context, groupID int64, text string) error {
	return f.record(ctx, "group", fmt.Sprintf("group %d: %s", groupID, text))
}

func (f *fakeMessenger) SendPrivateMessage(ctx context.Context, memberID int64, text string) error {
	return f.record(ctx, "private", fmt.Sprintf("private %d: %s", memberID, text))
}

func (f *fakeMessenger) RemoveMember(ctx context.Context, groupID, memberID int64) error {
	return f.record(ctx, "remove", fmt.Sprintf("remove %d/%d", groupID, memberID))
}

func (f *fakeMessenger) RestoreMember(ctx context.Context, groupID, memberID int64) error {
	return f.record(ctx, "restore", fmt.Sprintf("restore %d/%d", groupID, memberID))
}

func (f *fakeMessenger) CreateInviteReference(ctx context.Context, groupID int64) (string, error) {
	if err := f.record(ctx, "invite", fmt.Sprintf("invite %d", groupID)); err != nil {
		return "", err
	}
	return f.link, nil
}

func (f *fakeMessenger) GetMembershipStatus(ctx context.Context, groupID, memberID int64) (MembershipStatus, error) {
	return StatusMember, f.record(ctx, "status", fmt.Sprintf("status %d/%d", groupID, memberID))
}

type fakeGreeter struct {
	text string
	err  error
}

func (g fakeGreeter) BirthdayGreeting(context.Context, string) (string, error) {
	return g.text, g.err
}

// memStore is an in-memory Store.
type memStore struct {
	mu        sync.Mutex
	members   map[int64][]database.Member
	scanned   map[int64]birthday.Date
	groupsErr error
	listErr   map[int64]error
}

func newMemStore() *memStore {
	return &memStore{
		members: map[int64][]database.Member{},
		scanned: map[int64]birthday.Date{},
		listErr: map[int64]error{},
	}
}

func (s *memStore) addGroup(groupID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[groupID]; !ok {
		s.members[groupID] = nil
	}
}

func (s *memStore) add(groupID, memberID int64, name, bd string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := database.Member{GroupID: groupID, MemberID: memberID, DisplayName: name, RawBirthday: bd}
	m.Birthday, m.BirthdayErr = birthday.ParseISO(bd)
	s.members[groupID] = append(s.members[groupID], m)
}

func (s *memStore) ListGroups(context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.groupsErr != nil {
		return nil, s.groupsErr
	}
	groups := make([]int64, 0, len(s.members))
	for id := range s.members {
		groups = append(groups, id)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i] < groups[j] })
	return groups, nil
}

func (s *memStore) ListMembers(_ context.Context, groupID int64) ([]database.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.listErr[groupID]; err != nil {
		return nil, err
	}
	return append([]database.Member(nil), s.members[groupID]...), nil
}

func (s *memStore) LastScanDate(_ context.Context, groupID int64) (birthday.Date, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.scanned[groupID]
	return d, ok, nil
}

func (s *memStore) MarkScanned(_ context.Context, groupID int64, day birthday.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanned[groupID] = day
	return nil
}

var testTemplates = Templates{
	Eve:          "tomorrow is %s's birthday",
	Birthday:     "today is %s's birthday",
	InviteDM:     "come back: %s",
	InviteFailed: "could not invite %s",
	Restored:     "%s got an invite",
}
