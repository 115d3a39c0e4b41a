// Package content fetches pages and scores their on-page quality signals.
//
// fetcher.go provides HTTPFetcher, the production Fetcher. It builds one
// *http.Client up front, stamps a User-Agent on every request, caps the body
// size and decodes non-UTF-8 pages to UTF-8 before returning them.
//
// quality.go provides Estimator, which inspects a fetched page with goquery
// and converts the presence of structural and SEO elements into a 0–100
// score from fixed point budgets:
//
//	volume     ≤25  word count + HTML size
//	structure  ≤15  images, anchor links
//	core SEO   ≤30  title, meta description, h1, viewport
//	advanced   ≤30  structured data, Open Graph, Cache-Control
//
// When the page cannot be fetched the Estimator returns a random score in
// [30,70] and marks the report degraded.
package content
