// Package auth models the credential tokens accepted by the connect layer.
//
// Tokens form a closed set of known schemes. The connect layer itself only
// understands basic authentication; every other scheme is a recognised but
// unsupported value and is rejected before any credentials reach the wire.
package auth

import (
	"errors"
	"fmt"
)

// Known token schemes.
const (
	SchemeBasic    = "basic"
	SchemeBearer   = "bearer"
	SchemeKerberos = "kerberos"
	SchemeNone     = "none"
)

// Wire keys used inside a credential mapping.
const (
	keyScheme      = "scheme"
	keyPrincipal   = "principal"
	keyCredentials = "credentials"
	keyRealm       = "realm"
)

// Token is an immutable credential value. Construct tokens via Basic,
// Bearer, Kerberos, None or Custom; the zero value carries no scheme and
// is rejected by CredentialMap.
type Token struct {
	scheme      string
	principal   string
	credentials string
	realm       string
	parameters  map[string]any
}

// Basic creates a username/password token.
func Basic(username, password string) Token {
	return Token{scheme: SchemeBasic, principal: username, credentials: password}
}

// BasicWithRealm creates a username/password token scoped to a realm.
func BasicWithRealm(username, password, realm string) Token {
	return Token{scheme: SchemeBasic, principal: username, credentials: password, realm: realm}
}

// Bearer creates a token carrying a base64 encoded bearer credential.
func Bearer(token string) Token {
	return Token{scheme: SchemeBearer, credentials: token}
}

// Kerberos creates a token carrying a base64 encoded kerberos ticket.
func Kerberos(ticket string) Token {
	return Token{scheme: SchemeKerberos, credentials: ticket}
}

// None creates a token for servers that run without authentication.
func None() Token {
	return Token{scheme: SchemeNone}
}

// Custom creates a token for a server-side custom authentication scheme.
func Custom(principal, credentials, realm, scheme string, parameters map[string]any) Token {
	copied := make(map[string]any, len(parameters))
	for k, v := range parameters {
		copied[k] = v
	}
	return Token{scheme: scheme, principal: principal, credentials: credentials, realm: realm, parameters: copied}
}

// Scheme returns the scheme tag of the token.
func (t Token) Scheme() string {
	return t.scheme
}

// UsageError reports a mistake in how the caller configured the client,
// as opposed to a transport level failure.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// IsUsageError reports whether err is a client usage error.
func IsUsageError(err error) bool {
	var usage *UsageError
	return errors.As(err, &usage)
}

// CredentialMap converts a token into the key/value mapping sent with the
// init message. Only basic tokens are supported by this layer; any other
// scheme yields a UsageError naming the unsupported variant. The function
// performs no I/O.
func CredentialMap(t Token) (map[string]any, error) {
	if t.scheme != SchemeBasic {
		return nil, &UsageError{Message: fmt.Sprintf("unsupported auth token scheme %q, only basic authentication is handled by this connector", t.scheme)}
	}
	mapping := map[string]any{
		keyScheme:      t.scheme,
		keyPrincipal:   t.principal,
		keyCredentials: t.credentials,
	}
	if t.realm != "" {
		mapping[keyRealm] = t.realm
	}
	return mapping, nil
}
