// Package scraper contains the harvesting and resolution engine: the
// link-to-media-URL resolution algorithm and the scroll-driven feed
// harvesting loop. Both components talk to the browser through the
// narrow Driver capability interface in pkg/browser and are stateless
// per invocation; the caller owns the browser session and must release
// it on every exit path.
package scraper
