// SPDX-License-Identifier: MPL-2.0

package types

import "testing"

func TestPackageID_IsMain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id   PackageID
		want bool
	}{
		{MainPackage, true},
		{"", true},
		{"/app/dist/subA", false},
	}
	for _, tt := range tests {
		if got := tt.id.IsMain(); got != tt.want {
			t.Errorf("PackageID(%q).IsMain() = %v, want %v", tt.id, got, tt.want)
		}
	}
}
