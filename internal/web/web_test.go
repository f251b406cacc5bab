package web

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplates_Parse(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	for _, name := range []string{"login.html", "error.html", "dashboard.html", "tenants.html", "tenant.html", "onboarding.html", "ledger.html"} {
		assert.NotNil(t, tmpl.Lookup(name), name)
	}
}

func TestTemplates_RenderLogin(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	var buf bytes.Buffer
	err = tmpl.ExecuteTemplate(&buf, "login.html", map[string]interface{}{
		"Title": "Sign in",
		"Next":  "/ledger",
		"Error": "invalid <credentials>",
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `value="/ledger"`)
	assert.Contains(t, buf.String(), "invalid &lt;credentials&gt;")
	assert.NotContains(t, buf.String(), "Sign out")
}

func TestFuncs(t *testing.T) {
	date := Funcs["date"].(func(time.Time) string)
	money := Funcs["money"].(func(decimal.Decimal) string)
	label := Funcs["label"].(func(interface{}) string)

	assert.Equal(t, "2024-03-05", date(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "", date(time.Time{}))
	assert.Equal(t, "12.50", money(decimal.RequireFromString("12.5")))
	assert.Equal(t, "not started", label("not_started"))
}
