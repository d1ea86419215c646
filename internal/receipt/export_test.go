package receipt

import (
	"bytes"
	"encoding/csv"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"scansave/internal/extraction"
	"scansave/internal/locale"
)

var _ = Describe("WriteCSV", func() {
	var records []Record

	BeforeEach(func() {
		records = []Record{
			{
				ID:        "r1",
				StoreName: "Cafe Roma",
				Date:      "2024-01-15",
				Category:  extraction.CategoryFoodDining,
				Subtotal:  7.5,
				Tax:       0.75,
				Total:     8.25,
				Currency:  "USD",
				Items: []extraction.LineItem{
					{Description: "Espresso", Price: 3.5},
					{Description: "Croissant", Price: 4},
				},
			},
			{
				ID:        "r2",
				StoreName: "SuperMart",
				Date:      "2024-01-14",
				Category:  extraction.CategoryGroceries,
				Total:     22.10,
				Currency:  "USD",
				Items: []extraction.LineItem{
					{Description: "Milk", Price: 2.99},
				},
			},
		}
	})

	It("writes one row per line item under a localized header", func() {
		var buf bytes.Buffer
		Expect(WriteCSV(&buf, records, "en")).To(Succeed())

		rows, err := csv.NewReader(&buf).ReadAll()
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(4))
		Expect(rows[0]).To(Equal(locale.CSVHeaders("en")))
	})

	It("repeats the record columns on every item row", func() {
		var buf bytes.Buffer
		Expect(WriteCSV(&buf, records, "en")).To(Succeed())

		rows, err := csv.NewReader(&buf).ReadAll()
		Expect(err).NotTo(HaveOccurred())

		Expect(rows[1]).To(Equal([]string{"r1", "Cafe Roma", "2024-01-15", "Food & Dining", "7.50", "0.75", "8.25", "USD", "Espresso", "3.50"}))
		Expect(rows[2][8]).To(Equal("Croissant"))
		Expect(rows[3][0]).To(Equal("r2"))
	})

	It("localizes the header and category", func() {
		var buf bytes.Buffer
		Expect(WriteCSV(&buf, records, "de")).To(Succeed())

		rows, err := csv.NewReader(&buf).ReadAll()
		Expect(err).NotTo(HaveOccurred())
		Expect(rows[0]).To(Equal(locale.CSVHeaders("de")))
		Expect(rows[1][3]).To(Equal("Essen & Restaurants"))
	})

	It("writes only the header for an empty ledger", func() {
		var buf bytes.Buffer
		Expect(WriteCSV(&buf, nil, "en")).To(Succeed())

		rows, err := csv.NewReader(&buf).ReadAll()
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(1))
	})
})
