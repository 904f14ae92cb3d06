// Package client checks text against a grammar engine over its HTTP API.
//
// A Client either talks to a remote engine (Options.RemoteURL, or
// NewPublicAPI for the hosted service) or launches and supervises a local
// one through package engine. Local clients restart a dead engine before
// each request and retry a request once when the engine drops the
// connection; remote clients never retry.
//
// Request settings (language, rules, categories, picky level) live on the
// client and are sent with every check. Changing the language clears the
// enabled and disabled rules, since rule IDs are language specific.
//
//	c, err := client.New(ctx, client.Options{Language: "en-US"})
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	fixed, err := c.Correct(ctx, "ain't nothin but a thang")
//
// Errors are either a *TransportError (the engine could not be reached),
// a *ResponseError (it answered with an error status or an undecodable
// body; errors.Is(err, ErrRateLimited) for 426/429), or one of the
// configuration sentinels in errors.go.
package client
