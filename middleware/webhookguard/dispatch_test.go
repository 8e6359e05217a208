package webhookguard_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"webhook-gateway/middleware/webhookguard"
	"webhook-gateway/middleware/webhookguard/domain"
	"webhook-gateway/middleware/webhookguard/infra"
)

const update = `{"update_id":42,"callback_query":{"id":"1","data":"answer:3"}}`

var _ = Describe("Guard dispatch", func() {
	var (
		now      time.Time
		store    *infra.MemoryClientStore
		stats    *infra.MemoryStatsStore
		received []string
		handler  http.Handler
	)

	send := func(ip, path, contentType, body string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "http://gateway"+path, strings.NewReader(body))
		if contentType != "" {
			r.Header.Set("Content-Type", contentType)
		}
		r.RemoteAddr = ip + ":50000"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w
	}
	webhook := func(ip string) *httptest.ResponseRecorder {
		return send(ip, "/telegram/webhook/bot-token", "application/json", update)
	}

	BeforeEach(func() {
		now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		clock := domain.Clock(func() time.Time { return now })
		store = infra.NewMemoryClientStore(infra.WithClock(clock))
		stats = infra.NewMemoryStatsStore(infra.WithTrackKeys(true))
		received = nil

		upstream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			received = append(received, string(b))
			w.WriteHeader(http.StatusOK)
		})

		g, err := webhookguard.New(webhookguard.Options{Store: store, Stats: stats, Clock: clock})
		Expect(err).NotTo(HaveOccurred())
		handler = g.Wrap(upstream)
	})

	Context("a client bursting webhook callbacks", func() {
		It("is rate limited on the 20th request and blocked afterwards", func() {
			for i := 0; i < 19; i++ {
				Expect(webhook("1.2.3.4").Code).To(Equal(http.StatusOK))
				now = now.Add(time.Second)
			}

			limited := webhook("1.2.3.4")
			Expect(limited.Code).To(Equal(http.StatusTooManyRequests))
			Expect(limited.Body.String()).To(MatchJSON(`{"error":"Rate limit exceeded"}`))

			blocked := webhook("1.2.3.4")
			Expect(blocked.Code).To(Equal(http.StatusForbidden))
			Expect(blocked.Body.String()).To(MatchJSON(`{"error":"Access denied"}`))

			Expect(webhook("5.6.7.8").Code).To(Equal(http.StatusOK))
			Expect(received).To(HaveLen(20))
			Expect(store.History("1.2.3.4")).To(HaveLen(19))
		})

		It("is served again once the block expires", func() {
			for i := 0; i < 20; i++ {
				webhook("1.2.3.4")
			}
			now = now.Add(9*time.Minute + 59*time.Second)
			Expect(webhook("1.2.3.4").Code).To(Equal(http.StatusForbidden))

			now = now.Add(time.Second)
			Expect(webhook("1.2.3.4").Code).To(Equal(http.StatusOK))
		})
	})

	Context("malformed callbacks", func() {
		DescribeTable("are rejected with 400 and never forwarded",
			func(contentType, body string, reason domain.Reason) {
				w := send("1.2.3.4", "/telegram/webhook/bot-token", contentType, body)
				Expect(w.Code).To(Equal(http.StatusBadRequest))
				Expect(w.Body.String()).To(MatchJSON(`{"error":"Invalid request"}`))
				Expect(w.Body.String()).NotTo(ContainSubstring(string(reason)))
				Expect(received).To(BeEmpty())
				Expect(stats.Reasons()).To(HaveKeyWithValue(reason, int64(1)))
			},
			Entry("missing content type", "", update, domain.ReasonInvalidContentType),
			Entry("empty body", "application/json", "", domain.ReasonEmptyBody),
			Entry("not json", "application/json", "update", domain.ReasonInvalidJSON),
			Entry("no update_id", "application/json", `{"message":{}}`, domain.ReasonMissingUpdateID),
			Entry("unknown update kind", "application/json", `{"update_id":1}`, domain.ReasonInvalidUpdateStructure),
		)
	})

	Context("every response", func() {
		It("carries the security headers", func() {
			responses := []*httptest.ResponseRecorder{
				webhook("9.9.9.9"),
				send("9.9.9.9", "/telegram/webhook/bot-token", "text/plain", "x"),
				send("9.9.9.9", "/surveys/1/answers", "", ""),
			}
			for _, w := range responses {
				Expect(w.Header().Get("X-Content-Type-Options")).To(Equal("nosniff"))
				Expect(w.Header().Get("X-Frame-Options")).To(Equal("DENY"))
				Expect(w.Header().Get("X-XSS-Protection")).To(Equal("1; mode=block"))
				Expect(w.Header().Get("Strict-Transport-Security")).To(Equal("max-age=31536000; includeSubDomains"))
			}
		})
	})

	It("tracks decisions per client", func() {
		webhook("1.2.3.4")
		send("1.2.3.4", "/telegram/webhook/bot-token", "application/json", "{}")

		byKey := stats.ByKey()
		Expect(byKey).To(HaveKey(domain.Key("1.2.3.4")))
		Expect(byKey[domain.Key("1.2.3.4")][domain.OutcomeAllowed]).To(Equal(int64(1)))
		Expect(byKey[domain.Key("1.2.3.4")][domain.OutcomeInvalid]).To(Equal(int64(1)))
	})
})
