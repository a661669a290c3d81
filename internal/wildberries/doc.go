// Package wildberries queries the Wildberries catalogue search API and
// narrows the results.
//
// Client.Search sends the storefront's own exact-match search request,
// with keyword-derived filter parameters, and recovers from expired tokens,
// anti-bot pages, rate limiting and timeouts with a bounded number of
// retries. Results are then filtered by keywords and exclusions.
// ExtractProductInfo turns a raw result into a model.ProductInfo.
package wildberries
