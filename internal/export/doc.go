// Package export reads and writes the Excel workbooks exchanged with bot
// users: search results, and the global watch list admins edit offline and
// upload back.
package export
