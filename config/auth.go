package config

import "github.com/Manny27nyc/neobolt/auth"

// Token converts the declared auth settings into a credential token. An
// empty scheme with a username falls back to basic authentication; an
// empty block yields the unauthenticated token.
func (a AuthSettings) Token() auth.Token {
	switch {
	case a.Scheme == "none":
		return auth.None()
	case a.Scheme == "" && a.Username == "":
		return auth.None()
	case a.Realm != "":
		return auth.BasicWithRealm(a.Username, a.Password, a.Realm)
	default:
		return auth.Basic(a.Username, a.Password)
	}
}
