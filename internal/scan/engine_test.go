package scan

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edgard/birthdaybot/internal/birthday"
)

func mustDate(t *testing.T, s string) birthday.Date {
	t.Helper()
	d, err := birthday.ParseISO(s)
	require.NoError(t, err)
	return d
}

func newTestEngine(store Store, m Messenger, dedupe bool) *Engine {
	return NewEngine(nil, store, NewExecutor(nil, m, testTemplates), EngineConfig{
		LeapPolicy: birthday.LeapFeb28,
		Dedupe:     dedupe,
	})
}

func kinds(actions []Action) []birthday.Transition {
	out := make([]birthday.Transition, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.Kind)
	}
	return out
}

func TestEngineScenarios(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		today string
		want  []birthday.Transition
		calls []string
	}{
		{
			name:  "eve",
			today: "2025-03-14",
			want:  []birthday.Transition{birthday.PreBirthday},
			calls: []string{"remove -1/7", "group -1: tomorrow is @alice's birthday"},
		},
		{
			name:  "birthday",
			today: "2025-03-15",
			want:  []birthday.Transition{birthday.OnBirthday},
			calls: []string{"group -1: today is @alice's birthday"},
		},
		{
			name:  "day after",
			today: "2025-03-16",
			want:  []birthday.Transition{birthday.PostBirthday},
			calls: []string{
				"restore -1/7",
				"invite -1",
				"private 7: come back: https://t.me/+abc",
				"group -1: @alice got an invite",
			},
		},
		{
			name:  "quiet day",
			today: "2025-06-01",
			want:  []birthday.Transition{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store := newMemStore()
			store.add(-1, 7, "@alice", "2000-03-15")
			m := newFakeMessenger()

			actions, err := newTestEngine(store, m, false).Run(context.Background(), mustDate(t, tc.today))
			require.NoError(t, err)
			require.Equal(t, tc.want, kinds(actions))
			if tc.calls == nil {
				require.Empty(t, m.Calls())
			} else {
				require.Equal(t, tc.calls, m.Calls())
			}
		})
	}
}

func TestEngineEmptyGroup(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.addGroup(-1)
	m := newFakeMessenger()

	actions, err := newTestEngine(store, m, true).Run(context.Background(), mustDate(t, "2025-03-14"))
	require.NoError(t, err)
	require.Empty(t, actions)
	require.Empty(t, m.Calls())
}

func TestEngineRegistryFailureAbortsScan(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.add(-1, 7, "@alice", "2000-03-15")
	store.groupsErr = errors.New("database is locked")
	m := newFakeMessenger()

	actions, err := newTestEngine(store, m, false).Run(context.Background(), mustDate(t, "2025-03-14"))
	require.Error(t, err)
	require.Nil(t, actions)
	require.Empty(t, m.Calls())
}

func TestEngineIsolatesFailures(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.add(-1, 1, "@broken", "15.03.2000")
	store.add(-1, 2, "@alice", "2000-03-15")
	store.add(-2, 3, "@ghost", "2000-03-15")
	store.listErr[-2] = errors.New("no such table")
	store.add(-3, 4, "@bob", "1990-03-15")

	m := newFakeMessenger()
	m.fail["remove"] = errTransport

	actions, err := newTestEngine(store, m, false).Run(context.Background(), mustDate(t, "2025-03-14"))
	require.NoError(t, err)

	require.Equal(t, []Action{
		{Kind: birthday.PreBirthday, GroupID: -3, MemberID: 4, DisplayName: "@bob", Date: mustDate(t, "2025-03-14")},
		{Kind: birthday.PreBirthday, GroupID: -1, MemberID: 2, DisplayName: "@alice", Date: mustDate(t, "2025-03-14")},
	}, actions)
	require.ElementsMatch(t, []string{
		"remove -1/2",
		"group -1: tomorrow is @alice's birthday",
		"remove -3/4",
		"group -3: tomorrow is @bob's birthday",
	}, m.Calls())
}

func TestEngineMultipleTransitionsSameDay(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.add(-1, 1, "@eve", "2000-03-15")
	store.add(-1, 2, "@day", "2000-03-14")
	store.add(-1, 3, "@after", "2000-03-13")
	m := newFakeMessenger()

	actions, err := newTestEngine(store, m, false).Run(context.Background(), mustDate(t, "2025-03-14"))
	require.NoError(t, err)
	require.Equal(t, []birthday.Transition{
		birthday.PreBirthday,
		birthday.OnBirthday,
		birthday.PostBirthday,
	}, kinds(actions))
	require.Equal(t, []int64{1, 2, 3}, []int64{actions[0].MemberID, actions[1].MemberID, actions[2].MemberID})
}

func TestEngineDedupe(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.add(-1, 7, "@alice", "2000-03-15")
	ctx := context.Background()
	today := mustDate(t, "2025-03-14")

	m := newFakeMessenger()
	engine := newTestEngine(store, m, true)

	first, err := engine.Run(ctx, today)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := engine.Run(ctx, today)
	require.NoError(t, err)
	require.Empty(t, second)
	require.Len(t, m.Calls(), 2, "second run must not repeat external calls")

	next, err := engine.Run(ctx, today.AddDays(1))
	require.NoError(t, err)
	require.Equal(t, []birthday.Transition{birthday.OnBirthday}, kinds(next))
}

func TestEngineWithoutDedupeRepeats(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.add(-1, 7, "@alice", "2000-03-15")
	ctx := context.Background()
	today := mustDate(t, "2025-03-15")

	m := newFakeMessenger()
	engine := newTestEngine(store, m, false)

	for range 2 {
		actions, err := engine.Run(ctx, today)
		require.NoError(t, err)
		require.Len(t, actions, 1)
	}
	require.Len(t, m.Calls(), 2)
}

func TestEngineManyGroupsInParallel(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	for g := int64(1); g <= 20; g++ {
		store.add(-g, 100+g, "@member", "2000-03-15")
	}
	m := newFakeMessenger()

	actions, err := newTestEngine(store, m, true).Run(context.Background(), mustDate(t, "2025-03-15"))
	require.NoError(t, err)
	require.Len(t, actions, 20)
	for i := 1; i < len(actions); i++ {
		require.Less(t, actions[i-1].GroupID, actions[i].GroupID)
	}
	require.Len(t, m.Calls(), 20)
}
