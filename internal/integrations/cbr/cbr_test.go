package cbr

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/credit-dashboard/internal/config"
)

const keyRateResponse = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope">
  <soap:Body>
    <KeyRateResponse xmlns="http://web.cbr.ru/">
      <KeyRateResult>
        <diffgr:diffgram xmlns:diffgr="urn:schemas-microsoft-com:xml-diffgram-v1">
          <KeyRate xmlns="">
            <KR><DT>2025-06-09T00:00:00+03:00</DT><Rate>20.00</Rate></KR>
            <KR><DT>2025-06-06T00:00:00+03:00</DT><Rate>21.00</Rate></KR>
          </KeyRate>
        </diffgr:diffgram>
      </KeyRateResult>
    </KeyRateResponse>
  </soap:Body>
</soap:Envelope>`

func newTestClient(url string) *CBRClient {
	log := logrus.New()
	log.SetOutput(io.Discard)
	c := NewCBRClient(&config.Config{CBRURL: url}, log)
	c.now = func() time.Time { return time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC) }
	return c
}

func TestGetKeyRate(t *testing.T) {
	var gotAction string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAction = r.Header.Get("SOAPAction")
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(keyRateResponse))
	}))
	defer srv.Close()

	rate, err := newTestClient(srv.URL).GetKeyRate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "20", rate.Rate.String())
	assert.Equal(t, 2025, rate.Date.Year())
	assert.Equal(t, time.June, rate.Date.Month())
	assert.Equal(t, "http://web.cbr.ru/KeyRate", gotAction)
	assert.Contains(t, string(gotBody), "<fromDate>2025-05-11</fromDate>")
	assert.Contains(t, string(gotBody), "<ToDate>2025-06-10</ToDate>")
}

func TestGetKeyRate_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetKeyRate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestParseXMLResponse_Errors(t *testing.T) {
	_, err := parseXMLResponse([]byte("not xml <"))
	assert.Error(t, err)

	_, err = parseXMLResponse([]byte(`<root><diffgram><KeyRate></KeyRate></diffgram></root>`))
	assert.Error(t, err)

	_, err = parseXMLResponse([]byte(`<root><diffgram><KeyRate><KR><Rate>abc</Rate></KR></KeyRate></diffgram></root>`))
	assert.Error(t, err)
}
