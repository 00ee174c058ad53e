package moderator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/provider-directory/internal/entry"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ListModerators(ctx context.Context) ([]Moderator, error) {
	args := m.Called(ctx)
	mods, _ := args.Get(0).([]Moderator)
	return mods, args.Error(1)
}

func (m *mockStore) GetModerator(ctx context.Context, id string) (*Moderator, error) {
	args := m.Called(ctx, id)
	mod, _ := args.Get(0).(*Moderator)
	return mod, args.Error(1)
}

func (m *mockStore) FindModeratorsByName(ctx context.Context, username string) ([]Moderator, error) {
	args := m.Called(ctx, username)
	mods, _ := args.Get(0).([]Moderator)
	return mods, args.Error(1)
}

func loaded(t *testing.T, st *mockStore) *NameCache {
	t.Helper()
	st.On("ListModerators", mock.Anything).Return([]Moderator{
		{ID: "m1", Username: "alice"},
		{ID: "m2", Username: "bob"},
	}, nil).Once()
	c, err := Load(context.Background(), st)
	require.NoError(t, err)
	return c
}

func TestLoad_Error(t *testing.T) {
	st := &mockStore{}
	st.On("ListModerators", mock.Anything).Return(nil, errors.New("db down"))

	_, err := Load(context.Background(), st)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "moderator: load names")
}

func TestName_Hit(t *testing.T) {
	st := &mockStore{}
	c := loaded(t, st)

	name, ok := c.Name(context.Background(), "m1")
	assert.True(t, ok)
	assert.Equal(t, "alice", name)
	st.AssertNotCalled(t, "GetModerator", mock.Anything, mock.Anything)
}

func TestName_ReadThroughOnce(t *testing.T) {
	st := &mockStore{}
	c := loaded(t, st)
	st.On("GetModerator", mock.Anything, "m3").Return(&Moderator{ID: "m3", Username: "carol"}, nil).Once()

	for i := 0; i < 3; i++ {
		name, ok := c.Name(context.Background(), "m3")
		assert.True(t, ok)
		assert.Equal(t, "carol", name)
	}
	st.AssertNumberOfCalls(t, "GetModerator", 1)

	ids, err := c.IDsFor(context.Background(), "carol")
	require.NoError(t, err)
	assert.Equal(t, []string{"m3"}, ids)
}

func TestName_UnknownAndFailure(t *testing.T) {
	st := &mockStore{}
	c := loaded(t, st)
	st.On("GetModerator", mock.Anything, "ghost").Return(nil, nil)
	st.On("GetModerator", mock.Anything, "broken").Return(nil, errors.New("timeout"))

	_, ok := c.Name(context.Background(), "ghost")
	assert.False(t, ok)
	_, ok = c.Name(context.Background(), "broken")
	assert.False(t, ok)
}

func TestIDsFor_Miss(t *testing.T) {
	st := &mockStore{}
	c := loaded(t, st)
	st.On("FindModeratorsByName", mock.Anything, "dave").Return([]Moderator{{ID: "m4", Username: "dave"}}, nil).Once()
	st.On("FindModeratorsByName", mock.Anything, "nobody").Return(nil, nil)

	ids, err := c.IDsFor(context.Background(), "dave")
	require.NoError(t, err)
	assert.Equal(t, []string{"m4"}, ids)

	ids, err = c.IDsFor(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = c.IDsFor(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, ids)
}

func TestLabel(t *testing.T) {
	st := &mockStore{}
	c := loaded(t, st)
	st.On("GetModerator", mock.Anything, "gone").Return(nil, nil)

	m1, gone := "m1", "gone"
	entries := []*entry.Entry{{ApprovedBy: &m1}, {ApprovedBy: &gone}, {}}
	c.Label(context.Background(), entries)

	assert.Equal(t, "alice", *entries[0].ApprovedBy)
	assert.Equal(t, "gone", *entries[1].ApprovedBy)
	assert.Nil(t, entries[2].ApprovedBy)
}

func TestNameCache_ConcurrentReads(t *testing.T) {
	st := &mockStore{}
	c := loaded(t, st)
	st.On("GetModerator", mock.Anything, mock.Anything).Return(&Moderator{ID: "m9", Username: "zed"}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				c.Name(context.Background(), "m1")
			} else {
				c.Name(context.Background(), "m9")
			}
		}(i)
	}
	wg.Wait()

	name, ok := c.Name(context.Background(), "m9")
	assert.True(t, ok)
	assert.Equal(t, "zed", name)
}
