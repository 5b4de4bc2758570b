package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/stacks/pkg/chunker"
	"github.com/papercomputeco/stacks/pkg/ingest"
	stackslogger "github.com/papercomputeco/stacks/pkg/logger"
	testutils "github.com/papercomputeco/stacks/pkg/utils/test"
)

var _ = Describe("API handlers", func() {
	var (
		server   *Server
		store    *testutils.MockStore
		driver   *testutils.MockIndexDriver
		embedder *testutils.MockEmbedder
		events   *testutils.MockPublisher
	)

	BeforeEach(func() {
		logger := stackslogger.Nop()
		store = testutils.NewMockStore(GinkgoT().TempDir())
		driver = testutils.NewMockIndexDriver()
		embedder = testutils.NewMockEmbedder()
		events = testutils.NewMockPublisher()

		splitter, err := chunker.NewSplitter(chunker.Config{
			ChunkSize:    64,
			ChunkOverlap: 0,
		})
		Expect(err).NotTo(HaveOccurred())

		pipeline := ingest.NewPipeline(
			store, splitter, embedder, driver, events,
			ingest.Config{PartitionKey: "stacks"},
			logger,
		)

		server = NewServer(
			Config{
				ListenAddr:  ":0",
				IndexDriver: driver,
				Embedder:    embedder,
				Store:       store,
			},
			pipeline,
			nil,
			logger,
		)
	})

	Describe("GET /ping", func() {
		It("returns pong", func() {
			req, err := http.NewRequest(http.MethodGet, "/ping", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
		})
	})

	Describe("GET /v1/documents", func() {
		It("lists stored documents", func() {
			store.Contents["a.txt"] = "alpha"
			store.Contents["b.md"] = "bravo"

			req, err := http.NewRequest(http.MethodGet, "/v1/documents", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var body struct {
				Count     int                `json:"count"`
				Documents []DocumentResponse `json:"documents"`
			}
			Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
			Expect(body.Count).To(Equal(2))
		})
	})

	Describe("POST /v1/ingest", func() {
		It("ingests a named document", func() {
			store.Contents["doc.txt"] = "some document text"

			req, err := http.NewRequest(http.MethodPost, "/v1/ingest",
				strings.NewReader(`{"document": "doc.txt"}`))
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var body IngestResponse
			Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
			Expect(body.Count).To(Equal(1))
			Expect(body.Reports[0].SucceededChunks).To(Equal(1))
			Expect(driver.Records).To(HaveLen(1))
		})

		It("ingests everything when no document is named", func() {
			store.Contents["a.txt"] = "alpha"
			store.Contents["b.md"] = "bravo"

			req, err := http.NewRequest(http.MethodPost, "/v1/ingest", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var body IngestResponse
			Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
			Expect(body.Count).To(Equal(2))
			Expect(driver.Records).To(HaveLen(2))
		})

		It("returns 404 for an unknown document", func() {
			req, err := http.NewRequest(http.MethodPost, "/v1/ingest",
				strings.NewReader(`{"document": "missing.txt"}`))
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))
		})
	})

	Describe("DELETE /v1/records", func() {
		BeforeEach(func() {
			store.Contents["a.txt"] = "alpha"
			store.Contents["b.txt"] = "bravo"

			req, err := http.NewRequest(http.MethodPost, "/v1/ingest", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
		})

		It("deletes records for one document", func() {
			req, err := http.NewRequest(http.MethodDelete, "/v1/records?file_name=a.txt", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var body DeleteResponse
			Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
			Expect(body.RecordsDeleted).To(Equal(1))
			Expect(driver.Records).To(HaveLen(1))
		})

		It("purges everything without a file_name", func() {
			req, err := http.NewRequest(http.MethodDelete, "/v1/records", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var body DeleteResponse
			Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
			Expect(body.RecordsDeleted).To(Equal(2))
			Expect(driver.Records).To(BeEmpty())
		})
	})
})
