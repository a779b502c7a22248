package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/autocompanion/autocompanion/internal/document"
	"github.com/autocompanion/autocompanion/internal/expiry"
	"github.com/autocompanion/autocompanion/internal/itinerary"
	"github.com/autocompanion/autocompanion/internal/ocr"
	"github.com/autocompanion/autocompanion/internal/server"
	"github.com/autocompanion/autocompanion/internal/trip"
)

// cannedGenerator answers every prompt with the same text
type cannedGenerator struct {
	text    string
	prompts []string
}

func (g *cannedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.text, nil
}

func (g *cannedGenerator) Close() error { return nil }

// cannedRecognizer returns fixed text for any image
type cannedRecognizer struct {
	text string
}

func (r *cannedRecognizer) Recognize(_ context.Context, _ *image.Gray) (string, error) {
	return r.text, nil
}

func (r *cannedRecognizer) Close() error { return nil }

var _ = Describe("Integration", func() {
	var (
		db         *trip.BoltDB
		generator  *cannedGenerator
		recognizer *cannedRecognizer
		imageHost  *ghttp.Server
		ghServer   *ghttp.Server
		debugDir   string
	)

	post := func(path, body string) (*http.Response, map[string]any) {
		resp, err := http.Post(ghServer.URL()+path, "application/json", strings.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		var decoded map[string]any
		Expect(json.Unmarshal(raw, &decoded)).To(Succeed())
		return resp, decoded
	}

	BeforeEach(func() {
		tempDir := GinkgoT().TempDir()

		var err error
		db, err = trip.NewBoltDB(filepath.Join(tempDir, "test.db"))
		Expect(err).NotTo(HaveOccurred())

		debugDir = filepath.Join(tempDir, "debug")
		artifacts, err := document.NewLocalStorage(debugDir)
		Expect(err).NotTo(HaveOccurred())

		generator = &cannedGenerator{text: "- Day 1 - Drive to Mysore\n- Day 2 - Palace tour\nSummary - easy trip"}
		recognizer = &cannedRecognizer{text: "TRANSPORT DEPARTMENT\nValidity 01/06/2023 to 31/05/2024\n"}

		img := image.NewGray(image.Rect(0, 0, 30, 20))
		for i := range img.Pix {
			img.Pix[i] = 255
		}
		img.SetGray(5, 5, color.Gray{Y: 0})
		var buf bytes.Buffer
		Expect(png.Encode(&buf, img)).To(Succeed())

		imageHost = ghttp.NewServer()
		imageHost.RouteToHandler("GET", "/permit.png",
			ghttp.RespondWith(http.StatusOK, buf.Bytes(), http.Header{"Content-Type": []string{"image/png"}}))
		imageHost.RouteToHandler("GET", "/missing.png", ghttp.RespondWith(http.StatusNotFound, "NoSuchKey"))

		planner := itinerary.NewPlanner(generator, 0)
		srv := server.NewServer(server.Options{
			Trips:   trip.NewService(db, planner),
			Planner: planner,
			Documents: document.NewServiceWithDeps(
				ocr.NewFetcher(0, 0),
				ocr.NewDecoder(0),
				ocr.NewNormalizer(),
				recognizer,
				expiry.NewMatcher(),
				artifacts,
				fixedID("it"),
			),
		})

		ghServer = ghttp.NewServer()
		ghServer.RouteToHandler("POST", "/api/trip/generate", srv.ServeHTTP)
		ghServer.RouteToHandler("POST", "/ocr-url", srv.ServeHTTP)
	})

	AfterEach(func() {
		ghServer.Close()
		imageHost.Close()
		db.Close()
	})

	It("should generate, store and return a trip", func() {
		resp, body := post("/api/trip/generate", `{"from":"Bangalore","to":"Mysore","days":"2","style":"Relaxed"}`)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(body["success"]).To(BeTrue())
		Expect(body["itinerary"]).To(HaveLen(3))

		id := uint64(body["trip_id"].(float64))
		Expect(id).To(Equal(uint64(1)))

		saved, err := db.GetTrip(context.Background(), id)
		Expect(err).NotTo(HaveOccurred())
		Expect(saved.FromPlace).To(Equal("Bangalore"))
		Expect(saved.Days).To(Equal(2))
		Expect(saved.AIRawText).To(Equal(generator.text))

		Expect(generator.prompts).To(HaveLen(1))
		Expect(generator.prompts[0]).To(ContainSubstring("Destination: Mysore"))
	})

	It("should not call the generator when days is missing", func() {
		resp, body := post("/api/trip/generate", `{"from":"Bangalore","to":"Mysore","style":"Relaxed"}`)
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(body["success"]).To(BeFalse())
		Expect(generator.prompts).To(BeEmpty())

		_, err := db.GetTrip(context.Background(), 1)
		Expect(err).To(HaveOccurred())
	})

	It("should read the end of a validity range from a downloaded image", func() {
		resp, body := post("/ocr-url", `{"file_url":"`+imageHost.URL()+`/permit.png"}`)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(body["success"]).To(BeTrue())
		Expect(body["expiry_date"]).To(Equal("31/05/2024"))
		Expect(body["extracted_text"]).To(Equal("TRANSPORT DEPARTMENT\nValidity 01/06/2023 to 31/05/2024"))

		Expect(filepath.Join(debugDir, "it_raw.png")).To(BeAnExistingFile())
		Expect(filepath.Join(debugDir, "it_processed.png")).To(BeAnExistingFile())
	})

	It("should report a failed download in the OCR envelope", func() {
		resp, body := post("/ocr-url", `{"file_url":"`+imageHost.URL()+`/missing.png"}`)
		Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
		Expect(body["success"]).To(BeFalse())
		Expect(body["expiry_date"]).To(Equal("Not detected"))
		Expect(body["extracted_text"]).To(ContainSubstring("NoSuchKey"))
	})
})

type fixedID string

func (f fixedID) Generate() string { return string(f) }
