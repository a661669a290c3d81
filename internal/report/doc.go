// Package report renders one-off search results for the command line.
//
// Writers exist for plain text, JSON and Markdown. They share the Writer
// interface and can be combined with MultiWriter.
package report
