package strutil

import "testing"

func TestToSnakeCase(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"user", "user"},
		{"userName", "user_name"},
		{"UserName", "user_name"},
		{"HTTPServer", "http_server"},
		{"user-name", "user_name"},
		{"user name", "user_name"},
		{"already_snake", "already_snake"},
	}
	for _, tc := range cases {
		if got := ToSnakeCase(tc.in); got != tc.want {
			t.Errorf("ToSnakeCase(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSQLNaming(t *testing.T) {
	if got := SQLName("shop", "orders"); got != "shop_orders" {
		t.Errorf("SQLName: %q", got)
	}
	if got := SQLName("", "orders"); got != "orders" {
		t.Errorf("SQLName without namespace: %q", got)
	}
	if got := QualifiedName("shop", "orders"); got != "shop.orders" {
		t.Errorf("QualifiedName: %q", got)
	}
	if got := ColumnPath([]string{"address", "geo"}, "lat"); got != "address_geo_lat" {
		t.Errorf("ColumnPath: %q", got)
	}
	if got := ListTableName("shop_order", "tags"); got != "shop_order_tags" {
		t.Errorf("ListTableName: %q", got)
	}
}
