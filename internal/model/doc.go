// Package model defines the core data structures used throughout wbwatch.
//
// This package contains the following main types:
//   - User and Setting: bot users and key/value settings
//   - GlobalProduct: an admin-managed watch entry with a price window
//   - ChannelNotification: the last announced price per product URL
//   - RawProduct and ProductInfo: Wildberries search results
//
// Models live in their own package so database, wildberries, monitor and bot
// can share them without import cycles.
package model
