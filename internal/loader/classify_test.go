package loader

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

const signInPage = `<!DOCTYPE html>
<html><head><title>Google Sheets - Sign in</title></head>
<body><h1>Sign in</h1></body></html>`

func TestLooksLikeHTML(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		want        bool
	}{
		{"csv", "Year,Revenue\n2021,10", "text/csv", false},
		{"doctype", signInPage, "", true},
		{"leading whitespace and bom", "\ufeff  \n<html><body></body></html>", "", true},
		{"content type", "Year,Revenue", "text/html; charset=utf-8", true},
		{"json", `[{"Year":2021}]`, "application/json", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, looksLikeHTML([]byte(tt.body), tt.contentType))
		})
	}
}

func TestHTMLTitle(t *testing.T) {
	assert.Equal(t, "Google Sheets - Sign in", htmlTitle([]byte(signInPage)))
	assert.Equal(t, "Access denied", htmlTitle([]byte("<html><body><h1>Access\n  denied</h1></body></html>")))
}

func TestClassifyPayload(t *testing.T) {
	err := classifyPayload(domain.DatasetPrimary, domain.TierRemote, []byte(signInPage), "text/html")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotPublic))
	assert.Contains(t, err.Error(), "Google Sheets - Sign in")

	err = classifyPayload(domain.DatasetPrimary, domain.TierRemote, []byte(" \n "), "text/csv")
	assert.True(t, errors.Is(err, ErrEmpty))

	assert.NoError(t, classifyPayload(domain.DatasetPrimary, domain.TierRemote, []byte("a,b\n1,2"), "text/csv"))
}

func TestAcceptRows(t *testing.T) {
	rows, err := acceptRows(domain.DatasetPrimary, domain.TierLocal, []domain.Row{
		{},
		{"Year": domain.Missing()},
		{"Year": domain.Number(2021)},
	})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = acceptRows(domain.DatasetPrimary, domain.TierLocal, []domain.Row{{}})
	assert.True(t, errors.Is(err, ErrEmpty))
}
