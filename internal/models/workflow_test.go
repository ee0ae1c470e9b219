package models

import (
	"errors"
	"testing"

	"porter/internal/backend"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupWorkflow(t *testing.T) {
	wf, err := LookupWorkflow(" Images ")
	require.NoError(t, err)
	assert.Equal(t, backend.ConvertImages, wf.Command)
	assert.True(t, wf.ReportProgress)

	wf, err = LookupWorkflow("site")
	require.NoError(t, err)
	assert.Equal(t, backend.CreateSite, wf.Command)
	assert.True(t, wf.DetectSoftFailure)
	assert.True(t, wf.OfferOpenResult)

	_, err = LookupWorkflow("video")
	assert.ErrorContains(t, err, "images, site")
}

func TestWorkflow_PayloadMarksUnsetSlots(t *testing.T) {
	wf := SiteWorkflow()

	payload := wf.Payload(map[Slot]string{
		SlotInput:  "/site/index.html",
		SlotOutput: "/site/out.html",
	})

	assert.Equal(t, backend.Payload{
		backend.KeyInputFile:       "/site/index.html",
		backend.KeyDeclarationFile: nil,
		backend.KeyOutputFile:      "/site/out.html",
	}, payload)
}

func TestWorkflow_Selector(t *testing.T) {
	wf := ImagesWorkflow()

	sel, ok := wf.Selector(SlotOutput)
	require.True(t, ok)
	assert.Equal(t, DialogOpenDirectory, sel.Dialog.Kind)
	assert.True(t, sel.Dialog.StartAtHome)
	assert.Equal(t, backend.KeyOutputDir, sel.PayloadKey)

	_, ok = wf.Selector(SlotDeclaration)
	assert.False(t, ok)
}

func TestWorkflow_FailureMessage(t *testing.T) {
	site := SiteWorkflow()

	assert.Equal(t, "Select a valid template file.",
		site.FailureMessage(&backend.CommandError{Kind: backend.KindInput, Message: "no template"}))
	assert.Equal(t, "Select a valid declaration file.",
		site.FailureMessage(errors.New("cannot read declaration")))
	assert.Equal(t, "cannot write output file",
		site.FailureMessage(errors.New("cannot write output file")))
	assert.Equal(t, "disk full", site.FailureMessage(errors.New("disk full")))

	images := ImagesWorkflow()
	assert.Equal(t, "missing inputFile",
		images.FailureMessage(errors.New("missing inputFile")))
}

func TestFileFilter(t *testing.T) {
	f := FileFilter{Name: "Html", Extensions: []string{"html", ".htm"}}
	assert.Equal(t, []string{"*.html", "*.htm"}, f.Patterns())
	assert.Equal(t, []string{".html", ".htm"}, f.DottedExtensions())
}
