package config

import "sort"

// FilterFile represents the structure of the wbwatch.yaml filters file.
//
// Example:
//
//	keywords:
//	  2TB:
//	    f4424: "1116843"
//	  Green:
//	    f14177449: "20215013"
type FilterFile struct {
	// Keywords maps a user keyword to the Wildberries filter params it adds
	// to a search request. Entries override built-in mappings of the same name.
	Keywords map[string]map[string]string `yaml:"keywords,omitempty"`
}

// KeywordParam is a single filter parameter contributed by a keyword.
type KeywordParam struct {
	Key   string
	Value string
}

// KeywordEntry is a keyword together with its filter parameters.
type KeywordEntry struct {
	Keyword string
	Params  []KeywordParam
}

// Entries returns the file's keyword mappings sorted by keyword, with each
// keyword's params sorted by key. YAML maps carry no order, so sorting keeps
// the generated query strings stable between runs.
func (ff *FilterFile) Entries() []KeywordEntry {
	if ff == nil {
		return nil
	}

	keywords := make([]string, 0, len(ff.Keywords))
	for k := range ff.Keywords {
		keywords = append(keywords, k)
	}
	sort.Strings(keywords)

	entries := make([]KeywordEntry, 0, len(keywords))
	for _, kw := range keywords {
		params := ff.Keywords[kw]
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		entry := KeywordEntry{Keyword: kw}
		for _, k := range keys {
			entry.Params = append(entry.Params, KeywordParam{Key: k, Value: params[k]})
		}
		entries = append(entries, entry)
	}
	return entries
}
