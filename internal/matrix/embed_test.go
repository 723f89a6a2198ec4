package matrix

import (
	"testing"

	"dva-dashboard-be/internal/config"
	"dva-dashboard-be/internal/entity"

	"github.com/stretchr/testify/assert"
)

const reportURL = "https://lookerstudio.google.com/embed/reporting/r1/page/p1"

func TestBuildEmbedURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		sel  entity.FilterSelection
		want string
	}{
		{
			name: "nothing narrowed",
			base: reportURL,
			sel:  entity.DefaultFilterSelection(),
			want: reportURL,
		},
		{
			name: "type only",
			base: reportURL,
			sel:  entity.FilterSelection{Type: "X", Category: "all"},
			want: reportURL + "?type_filter=X",
		},
		{
			name: "category only",
			base: reportURL,
			sel:  entity.FilterSelection{Type: "all", Category: "Clinical"},
			want: reportURL + "?category_filter=Clinical",
		},
		{
			name: "type before category",
			base: reportURL,
			sel:  entity.FilterSelection{Type: "A", Category: "Revenue"},
			want: reportURL + "?type_filter=A&category_filter=Revenue",
		},
		{
			name: "existing query uses ampersand",
			base: reportURL + "?rm=minimal",
			sel:  entity.FilterSelection{Type: "A", Category: "all"},
			want: reportURL + "?rm=minimal&type_filter=A",
		},
		{
			name: "reserved characters are escaped",
			base: reportURL,
			sel:  entity.FilterSelection{Type: "R&D / Ops", Category: "a=b+c?"},
			want: reportURL + "?type_filter=R%26D%20%2F%20Ops&category_filter=a%3Db%2Bc%3F",
		},
		{
			name: "empty selection values are treated as all",
			base: reportURL,
			sel:  entity.FilterSelection{},
			want: reportURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildEmbedURL(tt.base, tt.sel))
		})
	}
}

func TestEmbedConfigured(t *testing.T) {
	assert.False(t, EmbedConfigured(""))
	assert.False(t, EmbedConfigured(config.PlaceholderEmbedURL))
	assert.True(t, EmbedConfigured(reportURL))
}
