package server

import (
	"net/http/httptest"
	"testing"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayout(t *testing.T) {
	bin, ok := launcher.LookPath()
	if !ok {
		t.Skip("no browser installed")
	}

	s, _ := testServer(t)
	ts := httptest.NewServer(s.Echo())
	defer ts.Close()

	u := launcher.New().Bin(bin).Headless(true).MustLaunch()
	browser := rod.New().ControlURL(u).MustConnect()
	defer browser.MustClose()

	page := browser.MustPage(ts.URL + "/")
	page.MustWaitLoad()

	assert.Equal(t, "Spectrogram Generator", page.MustInfo().Title)

	layout := page.MustEval(`() => {
		const form = document.querySelector('form#spectrogram');
		if (!form) {
			return { error: 'form not found' };
		}
		const rect = form.getBoundingClientRect();
		const inputs = Array.from(form.querySelectorAll('input[type=number]')).map(el => ({
			name: el.name,
			value: el.value,
			width: el.getBoundingClientRect().width,
		}));
		return {
			method: form.method,
			enctype: form.enctype,
			formWidth: rect.width,
			inputs: inputs,
			fileRequired: form.querySelector('input[type=file]').required,
			button: !!form.querySelector('button[type=submit]'),
		};
	}`).Map()

	if errVal, ok := layout["error"]; ok {
		t.Fatalf("Layout error: %s", errVal.Str())
	}

	assert.Equal(t, "post", layout["method"].Str())
	assert.Equal(t, "multipart/form-data", layout["enctype"].Str())
	assert.True(t, layout["fileRequired"].Bool(), "audio file input should be required")
	assert.True(t, layout["button"].Bool(), "submit button should exist")

	formWidth := layout["formWidth"].Num()
	inputs := layout["inputs"].Arr()
	require.Len(t, inputs, 5)

	defaults := map[string]string{
		"width": "800", "height": "400", "fps": "30", "frameSize": "2048", "hopSize": "1024",
	}
	for _, in := range inputs {
		m := in.Map()
		name := m["name"].Str()
		assert.Equal(t, defaults[name], m["value"].Str(), "default for %s", name)
		// Inputs fill the form minus its padding.
		assert.InDelta(t, formWidth-40, m["width"].Num(), 2, "width of %s", name)
	}
}
