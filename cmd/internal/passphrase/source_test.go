package passphrase

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func stubbed(env map[string]string, typed string, promptErr error) (*Source, *int) {
	prompts := 0
	s := NewSource("TIP20_PASS", "operator.json")
	s.lookup = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	s.prompt = func(string) (string, error) {
		prompts++
		return typed, promptErr
	}
	return s, &prompts
}

func TestEnvironmentWins(t *testing.T) {
	s, prompts := stubbed(map[string]string{"TIP20_PASS": " secret "}, "typed", nil)
	value, err := s.Get()
	require.NoError(t, err)
	require.Equal(t, " secret ", value)
	require.Zero(t, *prompts)
}

func TestEmptyEnvironmentRejected(t *testing.T) {
	s, _ := stubbed(map[string]string{"TIP20_PASS": "  "}, "typed", nil)
	_, err := s.Get()
	require.Error(t, err)
}

func TestPromptCached(t *testing.T) {
	s, prompts := stubbed(nil, "typed", nil)
	for i := 0; i < 3; i++ {
		value, err := s.Get()
		require.NoError(t, err)
		require.Equal(t, "typed", value)
	}
	require.Equal(t, 1, *prompts)
}

func TestPromptFailures(t *testing.T) {
	s, _ := stubbed(nil, "", errNoTerminal)
	_, err := s.Get()
	require.True(t, errors.Is(err, errNoTerminal))
	require.Contains(t, err.Error(), "TIP20_PASS")

	s, _ = stubbed(nil, "   ", nil)
	_, err = s.Get()
	require.Error(t, err)
}
