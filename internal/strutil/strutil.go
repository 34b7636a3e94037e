// Package strutil provides string utilities for case conversion and SQL
// naming used throughout the quarry codebase.
package strutil

import (
	"strings"
	"unicode"
)

// -----------------------------------------------------------------------------
// Case Conversion
// -----------------------------------------------------------------------------

// ToSnakeCase lowers an identifier to snake_case. Word boundaries are
// transitions into upper case and the separators '-' and ' '.
// userName -> user_name, HTTPServer -> http_server.
func ToSnakeCase(s string) string {
	runes := []rune(s)

	var b strings.Builder
	b.Grow(len(s) + 2)
	for i, r := range runes {
		switch {
		case r == '-' || r == ' ':
			b.WriteByte('_')
		case unicode.IsUpper(r):
			// A boundary sits before the upper rune when it follows a lower
			// rune, or starts a new word after an acronym run (HTTPServer).
			boundary := i > 0 && (unicode.IsLower(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1])))
			if boundary {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// -----------------------------------------------------------------------------
// SQL Naming
// -----------------------------------------------------------------------------

// SQLName creates a qualified SQL table name from namespace and table.
// Example: SQLName("shop", "orders") -> "shop_orders"
func SQLName(namespace, table string) string {
	if namespace == "" {
		return table
	}
	return namespace + "_" + table
}

// QualifiedName returns the dot-separated qualified name (namespace.table or table).
// Example: QualifiedName("shop", "orders") -> "shop.orders"
func QualifiedName(namespace, table string) string {
	if namespace == "" {
		return table
	}
	return namespace + "." + table
}

// ColumnPath joins embedding field names with a leaf column name.
// Example: ColumnPath([]string{"address", "geo"}, "lat") -> "address_geo_lat"
func ColumnPath(prefixes []string, leaf string) string {
	if len(prefixes) == 0 {
		return leaf
	}
	var b strings.Builder
	for _, p := range prefixes {
		b.WriteString(p)
		b.WriteByte('_')
	}
	b.WriteString(leaf)
	return b.String()
}

// ListTableName derives the default name of the side table that stores a
// list-valued field. Example: ListTableName("shop_order", "tags") -> "shop_order_tags".
func ListTableName(owner, field string) string {
	return owner + "_" + field
}
