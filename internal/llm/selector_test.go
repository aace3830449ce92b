package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSelect_OverrideFirst(t *testing.T) {
	b := newFakeBackend(&fakeModel{name: "custom-model"}, &fakeModel{name: "gemini-1.5-flash"})
	s := NewSelector(b, SelectorConfig{Override: "custom-model"}, zap.NewNop())

	m, err := s.Select(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "custom-model", m.Name())
	assert.Equal(t, []string{"custom-model"}, b.lookups)
}

// TestSelect_OverrideFailsFallsToPreferred verifies a broken override does not stop selection.
func TestSelect_OverrideFailsFallsToPreferred(t *testing.T) {
	b := newFakeBackend(&fakeModel{name: "gemini-1.0"})
	s := NewSelector(b, SelectorConfig{Override: "retired-model"}, zap.NewNop())

	m, err := s.Select(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.0", m.Name())
	assert.Equal(t, []string{"retired-model", "gemini-1.5-flash", "gemini-1.5", "gemini-1.0"}, b.lookups)
}

func TestSelect_ListingFilteredByKeyword(t *testing.T) {
	b := newFakeBackend(&fakeModel{name: "models/embedding-001"}, &fakeModel{name: "models/Gemini-2.0-pro"})
	b.listed = []string{"models/embedding-001", "models/Gemini-2.0-pro"}
	s := NewSelector(b, SelectorConfig{}, zap.NewNop())

	m, err := s.Select(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "models/Gemini-2.0-pro", m.Name())
	assert.NotContains(t, b.lookups, "models/embedding-001")
}

func TestSelect_ListingErrorYieldsNoModel(t *testing.T) {
	b := newFakeBackend()
	b.listErr = errors.New("permission denied")
	s := NewSelector(b, SelectorConfig{}, zap.NewNop())

	_, err := s.Select(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoModel)
}

func TestSelect_SkipsTriedNames(t *testing.T) {
	b := newFakeBackend(&fakeModel{name: "gemini-1.5-flash"}, &fakeModel{name: "gemini-1.5"})
	s := NewSelector(b, SelectorConfig{}, zap.NewNop())

	m, err := s.Select(context.Background(), []string{"gemini-1.5-flash"})
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5", m.Name())
}

func TestSelect_CustomLists(t *testing.T) {
	b := newFakeBackend(&fakeModel{name: "mistral-large"})
	b.listed = []string{"mistral-large"}
	s := NewSelector(b, SelectorConfig{Preferred: []string{"nope"}, Keywords: []string{"MISTRAL"}}, nil)

	m, err := s.Select(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "mistral-large", m.Name())
}

func TestSelect_NoBackend(t *testing.T) {
	s := NewSelector(nil, SelectorConfig{Override: "x"}, zap.NewNop())
	_, err := s.Select(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoBackend)
	assert.ErrorIs(t, err, ErrNoModel)
}
