// Package auth mints GitHub App credentials for the metadata providers.
//
// A GitHub App authenticates by presenting a short-lived RS256-signed JWT
// whose issuer is the app ID. AppTokenSource implements oauth2.TokenSource
// over that flow so it can be plugged straight into a provider
// configuration:
//
//	key, _ := auth.ParsePrivateKey(pemBytes)
//	src := auth.NewAppTokenSource(auth.AppConfig{AppID: "12345", PrivateKey: key})
//	provider, _ := repoforge.NewGitHubProvider(repoforge.GitHubProviderConfig{
//	    TokenSource: src,
//	})
package auth
