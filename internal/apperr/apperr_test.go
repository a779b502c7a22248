package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestApperr(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Apperr Suite")
}

var _ = Describe("Truncate", func() {
	It("leaves short payloads alone", func() {
		Expect(Truncate("short", 10)).To(Equal("short"))
	})

	It("cuts long payloads at n bytes", func() {
		out := Truncate(strings.Repeat("x", 20), 5)
		Expect(out).To(HavePrefix("xxxxx"))
		Expect(out).To(HaveSuffix("(truncated)"))
		Expect(strings.Count(out, "x")).To(Equal(5))
	})
})

var _ = Describe("Upstream", func() {
	It("wraps ErrUpstream", func() {
		Expect(errors.Is(Upstream("gemini", []byte("{}")), ErrUpstream)).To(BeTrue())
	})

	It("truncates the payload", func() {
		err := Upstream("gemini", []byte(strings.Repeat("a", MaxPayload*2)))
		Expect(len(err.Error())).To(BeNumerically("<", MaxPayload+100))
	})
})

var _ = Describe("Status", func() {
	DescribeTable("maps kinds to codes",
		func(err error, code int) {
			Expect(Status(err)).To(Equal(code))
		},
		Entry("nil", nil, http.StatusOK),
		Entry("validation", Validation("missing %s", "days"), http.StatusBadRequest),
		Entry("unauthorized", fmt.Errorf("%w: bad token", ErrUnauthorized), http.StatusUnauthorized),
		Entry("not found", fmt.Errorf("trip 3: %w", ErrNotFound), http.StatusNotFound),
		Entry("upstream", Upstream("ollama", nil), http.StatusInternalServerError),
		Entry("decode", ErrDecode, http.StatusInternalServerError),
		Entry("other", errors.New("boom"), http.StatusInternalServerError),
	)
})
