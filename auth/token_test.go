package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCredentialMapBasic(t *testing.T) {
	mapping, err := CredentialMap(Basic("neo4j", "neo4j"))
	require.NoError(t, err)
	require.Equal(t, map[string]any{
		"scheme":      "basic",
		"principal":   "neo4j",
		"credentials": "neo4j",
	}, mapping)
}

func TestCredentialMapBasicWithRealm(t *testing.T) {
	mapping, err := CredentialMap(BasicWithRealm("neo4j", "secret", "native"))
	require.NoError(t, err)
	require.Equal(t, "native", mapping["realm"])
	require.Equal(t, "neo4j", mapping["principal"])
}

func TestCredentialMapRejectsOtherSchemes(t *testing.T) {
	tokens := map[string]Token{
		"bearer":   Bearer("dGhpcyBpcyBub3QgYSB0b2tlbg=="),
		"kerberos": Kerberos("dGlja2V0"),
		"none":     None(),
		"custom":   Custom("user", "pass", "", "scram-sha-256", nil),
		"zero":     {},
	}
	for name, token := range tokens {
		t.Run(name, func(t *testing.T) {
			mapping, err := CredentialMap(token)
			require.Nil(t, mapping)
			require.Error(t, err)
			require.True(t, IsUsageError(err))
			var usage *UsageError
			require.ErrorAs(t, err, &usage)
		})
	}
}

func TestCustomCopiesParameters(t *testing.T) {
	params := map[string]any{"iterations": 1}
	token := Custom("user", "pass", "", "custom", params)
	params["iterations"] = 2
	require.Equal(t, 1, token.parameters["iterations"])
}

func TestIsUsageErrorRejectsOtherErrors(t *testing.T) {
	require.False(t, IsUsageError(nil))
	_, err := CredentialMap(Basic("neo4j", "neo4j"))
	require.False(t, IsUsageError(err))
}
