package support

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/macocr/internal/lines"
	"github.com/MeKo-Tech/macocr/internal/ocr"
	"github.com/cucumber/godog"
)

// RegisterSteps binds every step definition to sc.
func (testCtx *TestContext) RegisterSteps(sc *godog.ScenarioContext) {
	// Setup
	sc.Step(`^the OCR engine recognizes:$`, testCtx.theOCREngineRecognizes)
	sc.Step(`^the OCR engine recognizes nothing$`, testCtx.theOCREngineRecognizesNothing)
	sc.Step(`^the OCR engine fails with "([^"]*)"$`, testCtx.theOCREngineFailsWith)
	sc.Step(`^the line threshold is ([0-9.]+)$`, testCtx.theLineThresholdIs)
	sc.Step(`^the server is started without a token$`, testCtx.theServerIsStartedWithoutAToken)
	sc.Step(`^the server is started with token "([^"]*)"$`, testCtx.theServerIsStartedWithToken)
	sc.Step(`^an image "([^"]*)" exists$`, testCtx.anImageExists)

	// Requests
	sc.Step(`^I request OCR of the file "([^"]*)"$`, testCtx.iRequestOCROfTheFile)
	sc.Step(`^I request OCR of the file "([^"]*)" with authorization "([^"]*)"$`,
		testCtx.iRequestOCROfTheFileWithAuthorization)
	sc.Step(`^I request OCR of the image "([^"]*)" as base64$`, testCtx.iRequestOCROfTheImageAsBase64)
	sc.Step(`^I send the OCR body:$`, testCtx.iSendTheOCRBody)
	sc.Step(`^I send "([^"]*)" to "([^"]*)"$`, testCtx.iSendTo)

	// Assertions
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the envelope code should be (\d+)$`, testCtx.theEnvelopeCodeShouldBe)
	sc.Step(`^the envelope message should be "([^"]*)"$`, testCtx.theEnvelopeMessageShouldBe)
	sc.Step(`^the envelope message should contain "([^"]*)"$`, testCtx.theEnvelopeMessageShouldContain)
	sc.Step(`^the envelope data should be null$`, testCtx.theEnvelopeDataShouldBeNull)
	sc.Step(`^the full text should be:$`, testCtx.theFullTextShouldBe)
	sc.Step(`^the full text should be empty$`, testCtx.theFullTextShouldBeEmpty)
	sc.Step(`^the response should have (\d+) annotations?$`, testCtx.theResponseShouldHaveAnnotations)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the OCR engine should not have been called$`, testCtx.theOCREngineShouldNotHaveBeenCalled)
	sc.Step(`^the OCR engine should have been called (\d+) times?$`, testCtx.theOCREngineShouldHaveBeenCalled)
}

// theOCREngineRecognizes loads fragments from a table with the columns
// text, confidence, x, y, width, height.
func (testCtx *TestContext) theOCREngineRecognizes(table *godog.Table) error {
	if len(table.Rows) < 2 {
		return errors.New("fragment table needs a header and at least one row")
	}
	col := map[string]int{}
	for i, cell := range table.Rows[0].Cells {
		col[cell.Value] = i
	}
	for _, name := range []string{"text", "confidence", "x", "y", "width", "height"} {
		if _, ok := col[name]; !ok {
			return fmt.Errorf("fragment table is missing column %q", name)
		}
	}

	frags := make([]lines.Fragment, 0, len(table.Rows)-1)
	for _, row := range table.Rows[1:] {
		num := func(name string) (float64, error) {
			return strconv.ParseFloat(row.Cells[col[name]].Value, 64)
		}
		var vals [5]float64
		for i, name := range []string{"confidence", "x", "y", "width", "height"} {
			v, err := num(name)
			if err != nil {
				return fmt.Errorf("column %s: %w", name, err)
			}
			vals[i] = v
		}
		frags = append(frags, lines.Fragment{
			Text:       row.Cells[col["text"]].Value,
			Confidence: vals[0],
			BBox:       lines.BBox{vals[1], vals[2], vals[3], vals[4]},
		})
	}
	testCtx.Engine.Fragments = frags
	return nil
}

func (testCtx *TestContext) theOCREngineRecognizesNothing() error {
	testCtx.Engine.Fragments = nil
	return nil
}

func (testCtx *TestContext) theOCREngineFailsWith(msg string) error {
	testCtx.Engine.Err = errors.New(msg)
	return nil
}

func (testCtx *TestContext) theLineThresholdIs(v float64) error {
	testCtx.Threshold = v
	return nil
}

func (testCtx *TestContext) theServerIsStartedWithoutAToken() error {
	testCtx.Token = ""
	return testCtx.startServer()
}

func (testCtx *TestContext) theServerIsStartedWithToken(token string) error {
	testCtx.Token = token
	return testCtx.startServer()
}

func (testCtx *TestContext) anImageExists(name string) error {
	return testCtx.writePNG(name)
}

func (testCtx *TestContext) postOCR(req ocr.Request, header http.Header) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return testCtx.do(http.MethodPost, "/ocr", string(body), header)
}

func (testCtx *TestContext) iRequestOCROfTheFile(name string) error {
	return testCtx.postOCR(ocr.Request{ImagePath: testCtx.path(name)}, nil)
}

func (testCtx *TestContext) iRequestOCROfTheFileWithAuthorization(name, token string) error {
	return testCtx.postOCR(ocr.Request{ImagePath: testCtx.path(name)}, http.Header{"Authorization": {token}})
}

func (testCtx *TestContext) iRequestOCROfTheImageAsBase64(name string) error {
	payload, err := testCtx.base64Of(name)
	if err != nil {
		return err
	}
	return testCtx.postOCR(ocr.Request{ImageBase64: payload}, nil)
}

func (testCtx *TestContext) iSendTheOCRBody(body *godog.DocString) error {
	return testCtx.do(http.MethodPost, "/ocr", body.Content, nil)
}

func (testCtx *TestContext) iSendTo(method, route string) error {
	return testCtx.do(method, route, "", nil)
}

func (testCtx *TestContext) theResponseStatusShouldBe(code int) error {
	if testCtx.LastStatusCode != code {
		return fmt.Errorf("expected status %d, got %d (body %s)", code, testCtx.LastStatusCode, testCtx.LastBody)
	}
	return nil
}

func (testCtx *TestContext) theEnvelopeCodeShouldBe(code int) error {
	env, err := testCtx.envelope()
	if err != nil {
		return err
	}
	if env.Code != code {
		return fmt.Errorf("expected envelope code %d, got %d", code, env.Code)
	}
	return nil
}

func (testCtx *TestContext) theEnvelopeMessageShouldBe(msg string) error {
	env, err := testCtx.envelope()
	if err != nil {
		return err
	}
	if env.Message != msg {
		return fmt.Errorf("expected message %q, got %q", msg, env.Message)
	}
	return nil
}

func (testCtx *TestContext) theEnvelopeMessageShouldContain(part string) error {
	env, err := testCtx.envelope()
	if err != nil {
		return err
	}
	if !strings.Contains(env.Message, part) {
		return fmt.Errorf("expected message to contain %q, got %q", part, env.Message)
	}
	return nil
}

func (testCtx *TestContext) theEnvelopeDataShouldBeNull() error {
	env, err := testCtx.envelope()
	if err != nil {
		return err
	}
	if env.Data != nil {
		return fmt.Errorf("expected null data, got %s", *env.Data)
	}
	return nil
}

// theFullTextShouldBe compares fullText against a single-column table.
func (testCtx *TestContext) theFullTextShouldBe(table *godog.Table) error {
	d, err := testCtx.data()
	if err != nil {
		return err
	}
	want := make([]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		want = append(want, row.Cells[0].Value)
	}
	if !slices.Equal(d.FullText, want) {
		return fmt.Errorf("expected full text %q, got %q", want, d.FullText)
	}
	return nil
}

func (testCtx *TestContext) theFullTextShouldBeEmpty() error {
	d, err := testCtx.data()
	if err != nil {
		return err
	}
	if len(d.FullText) != 0 {
		return fmt.Errorf("expected no lines, got %q", d.FullText)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldHaveAnnotations(n int) error {
	d, err := testCtx.data()
	if err != nil {
		return err
	}
	if len(d.Annotations) != n {
		return fmt.Errorf("expected %d annotations, got %d", n, len(d.Annotations))
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, value string) error {
	if got := testCtx.LastHeaders.Get(name); got != value {
		return fmt.Errorf("expected header %s %q, got %q", name, value, got)
	}
	return nil
}

func (testCtx *TestContext) theOCREngineShouldNotHaveBeenCalled() error {
	return testCtx.theOCREngineShouldHaveBeenCalled(0)
}

func (testCtx *TestContext) theOCREngineShouldHaveBeenCalled(n int) error {
	if got := testCtx.Engine.Calls(); got != n {
		return fmt.Errorf("expected %d engine calls, got %d", n, got)
	}
	return nil
}
