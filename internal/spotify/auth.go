package spotify

import (
	spotifyauth "github.com/zmb3/spotify/v2/auth"
)

// Scopes needed to read and drive a user's playback.
var Scopes = []string{
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserModifyPlaybackState,
	spotifyauth.ScopeUserReadCurrentlyPlaying,
}

// NewAuthenticator returns the authorization-code flow helper for device logins.
// It also serves as the Refresher for Credentials.
func NewAuthenticator(clientID, clientSecret, redirectURL string) *spotifyauth.Authenticator {
	return spotifyauth.New(
		spotifyauth.WithClientID(clientID),
		spotifyauth.WithClientSecret(clientSecret),
		spotifyauth.WithRedirectURL(redirectURL),
		spotifyauth.WithScopes(Scopes...),
	)
}
