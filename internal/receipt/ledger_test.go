package receipt

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"scansave/internal/extraction"
)

var _ = Describe("Ledger", func() {
	var (
		store  *mockStore
		ledger *Ledger
	)

	BeforeEach(func() {
		store = &mockStore{}
	})

	JustBeforeEach(func() {
		ledger = NewLedger(store)
	})

	Describe("NewLedger", func() {
		When("a snapshot exists", func() {
			BeforeEach(func() {
				store.records = []Record{{ID: "r1", StoreName: "Market"}}
			})

			It("should rehydrate the records", func() {
				Expect(ledger.Len()).To(Equal(1))
				rec, ok := ledger.Find("r1")
				Expect(ok).To(BeTrue())
				Expect(rec.StoreName).To(Equal("Market"))
			})
		})

		When("loading the snapshot fails", func() {
			BeforeEach(func() {
				store.loadErr = errors.New("corrupt snapshot")
			})

			It("should start empty", func() {
				Expect(ledger.Len()).To(BeZero())
			})
		})
	})

	Describe("Insert", func() {
		BeforeEach(func() {
			store.records = []Record{{ID: "old", StoreName: "Bakery"}}
		})

		It("should assign the id and prepend the record", func() {
			rec, err := ledger.Insert(Record{StoreName: "Market"}, "new-id")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.ID).To(Equal("new-id"))

			all := ledger.All()
			Expect(all).To(HaveLen(2))
			Expect(all[0].ID).To(Equal("new-id"))
			Expect(all[1].ID).To(Equal("old"))
		})

		It("should persist the snapshot", func() {
			_, err := ledger.Insert(Record{StoreName: "Market"}, "new-id")
			Expect(err).NotTo(HaveOccurred())
			Expect(store.saves).To(Equal(1))
			Expect(store.records).To(HaveLen(2))
		})

		When("persisting fails", func() {
			BeforeEach(func() {
				store.saveErr = errors.New("disk full")
			})

			It("should return the error and roll back", func() {
				_, err := ledger.Insert(Record{StoreName: "Market"}, "new-id")
				Expect(err).To(HaveOccurred())
				Expect(ledger.Len()).To(Equal(1))
			})
		})
	})

	Describe("Delete", func() {
		BeforeEach(func() {
			store.records = []Record{
				{ID: "r1", StoreName: "Market"},
				{ID: "r2", StoreName: "Bakery"},
			}
		})

		It("should remove exactly the matching record", func() {
			rec, ok, err := ledger.Delete("r1")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(rec.StoreName).To(Equal("Market"))
			Expect(ledger.Len()).To(Equal(1))
			Expect(store.saves).To(Equal(1))
		})

		When("the id is unknown", func() {
			It("should be a no-op", func() {
				_, ok, err := ledger.Delete("missing")
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeFalse())
				Expect(ledger.Len()).To(Equal(2))
				Expect(store.saves).To(BeZero())
			})
		})
	})

	Describe("Search", func() {
		BeforeEach(func() {
			store.records = []Record{
				{ID: "r1", StoreName: "Cafe Roma", Category: extraction.CategoryFoodDining, Items: []extraction.LineItem{{Description: "Espresso"}}},
				{ID: "r2", StoreName: "SuperMart", Category: extraction.CategoryGroceries, Items: []extraction.LineItem{{Description: "Roma tomatoes"}}},
				{ID: "r3", StoreName: "Pharmacy", Category: extraction.CategoryHealth, Items: []extraction.LineItem{{Description: "Aspirin"}}},
			}
		})

		It("should match the store name case-insensitively", func() {
			Expect(ledger.Search("ROMA", "en")).To(HaveLen(2))
		})

		It("should match line-item descriptions", func() {
			out := ledger.Search("tomatoes", "en")
			Expect(out).To(HaveLen(1))
			Expect(out[0].ID).To(Equal("r2"))
		})

		It("should match the localized category label", func() {
			out := ledger.Search("groceries", "en")
			Expect(out).To(HaveLen(1))
			Expect(out[0].ID).To(Equal("r2"))
		})

		It("should match the category label in other languages", func() {
			out := ledger.Search("zdravlje", "sr")
			Expect(out).To(HaveLen(1))
			Expect(out[0].ID).To(Equal("r3"))
		})

		It("should return nothing for a non-matching query", func() {
			Expect(ledger.Search("zzz", "en")).To(BeEmpty())
		})

		It("should return the full ledger in order for an empty query", func() {
			out := ledger.Search("   ", "en")
			Expect(out).To(HaveLen(3))
			Expect(out[0].ID).To(Equal("r1"))
			Expect(out[2].ID).To(Equal("r3"))
		})
	})

	Describe("FilterByCategory", func() {
		BeforeEach(func() {
			store.records = []Record{
				{ID: "r1", Category: extraction.CategoryFoodDining},
				{ID: "r2", Category: extraction.CategoryGroceries},
				{ID: "r3", Category: extraction.CategoryFoodDining},
			}
		})

		It("should return only the matching records", func() {
			out := ledger.FilterByCategory("food_dining")
			Expect(out).To(HaveLen(2))
			Expect(out[0].ID).To(Equal("r1"))
			Expect(out[1].ID).To(Equal("r3"))
		})

		It("should return everything for 'all'", func() {
			Expect(ledger.FilterByCategory("all")).To(HaveLen(3))
		})

		It("should return everything for the empty category", func() {
			Expect(ledger.FilterByCategory("")).To(HaveLen(3))
		})
	})

	Describe("All", func() {
		BeforeEach(func() {
			store.records = []Record{
				{ID: "r1", Items: []extraction.LineItem{{Description: "Espresso", Price: 3.5}}},
			}
		})

		It("should hand out copies", func() {
			out := ledger.All()
			out[0].Items[0].Description = "mutated"

			again := ledger.All()
			Expect(again[0].Items[0].Description).To(Equal("Espresso"))
		})
	})
})
