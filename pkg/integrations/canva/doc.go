// Package canva provides a client for the Canva Connect REST API.
//
// # Authorization
//
// Canva uses OAuth 2.0 authorization code flow with PKCE. [GeneratePKCE]
// creates the verifier/challenge pair, [OAuthClient.AuthorizationURL] builds
// the consent URL and [OAuthClient.ExchangeCode] trades the callback code for
// tokens. Stored credentials are kept fresh with [OAuthClient.ValidToken],
// which refreshes a token that expires within the next minute.
//
// # Rendering
//
// Brand templates are filled through asynchronous jobs:
//
//	job, _ := c.CreateAutofill(ctx, templateID, data)
//	done, _ := c.WaitAutofill(ctx, job.ID)
//	exp, _ := c.CreateExport(ctx, done.Result.Design.ID, "png")
//	urls, _ := c.WaitExport(ctx, exp.ID)
//	png, _ := c.Download(ctx, urls[0], integrations.MaxDownloadSize)
package canva
