package chat

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"scansave/internal/locale"
	"scansave/internal/receipt"
)

var _ = Describe("Manager", func() {
	var (
		store   *mockStore
		client  *mockClient
		titler  *mockTitler
		ledger  *receipt.Ledger
		records []receipt.Record
		manager *Manager
	)

	newManager := func() *Manager {
		ledger = receipt.NewLedger(&mockLedgerStore{records: records})
		return NewManagerWithDeps(store, client, titler, ledger, false, "en",
			&seqIDGen{}, stubClock{now: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)})
	}

	BeforeEach(func() {
		store = &mockStore{}
		client = &mockClient{reply: &Reply{Text: "You spent 42 on coffee."}}
		titler = &mockTitler{title: "Coffee Spending"}
		records = nil
	})

	JustBeforeEach(func() {
		manager = newManager()
	})

	Describe("startup", func() {
		When("no sessions are persisted", func() {
			It("should create one active session with the sentinel title", func() {
				active, ok := manager.ActiveSession()
				Expect(ok).To(BeTrue())
				Expect(active.Title).To(Equal(SentinelTitle))
				Expect(manager.Sessions()).To(HaveLen(1))
			})

			It("should greet once with the empty-ledger variant", func() {
				active, _ := manager.ActiveSession()
				Expect(active.Messages).To(HaveLen(1))
				Expect(active.Messages[0].Role).To(Equal(RoleModel))
				Expect(active.Messages[0].Text).To(Equal(locale.GreetingWithoutData("en")))
			})

			It("should persist the snapshot", func() {
				Expect(store.saves).To(BeNumerically(">", 0))
				Expect(store.activeID).To(Equal("id-1"))
			})
		})

		When("the ledger holds records", func() {
			BeforeEach(func() {
				records = []receipt.Record{{ID: "r1"}}
			})

			It("should greet with the history-loaded variant", func() {
				active, _ := manager.ActiveSession()
				Expect(active.Messages[0].Text).To(Equal(locale.GreetingWithData("en")))
			})
		})

		When("sessions are persisted", func() {
			BeforeEach(func() {
				store.sessions = []Session{
					{ID: "s1", Title: "Coffee", Messages: []Message{{Role: RoleModel, Text: "hi"}}},
					{ID: "s2", Title: "Rent", Messages: []Message{{Role: RoleModel, Text: "hi"}}},
				}
				store.activeID = "s2"
			})

			It("should restore the sessions and active id", func() {
				Expect(manager.Sessions()).To(HaveLen(2))
				active, ok := manager.ActiveSession()
				Expect(ok).To(BeTrue())
				Expect(active.ID).To(Equal("s2"))
			})

			It("should not greet a session that has history", func() {
				active, _ := manager.ActiveSession()
				Expect(active.Messages).To(HaveLen(1))
			})
		})

		When("the persisted active id is stale", func() {
			BeforeEach(func() {
				store.sessions = []Session{{ID: "s1", Title: "Coffee", Messages: []Message{{Role: RoleModel, Text: "hi"}}}}
				store.activeID = "gone"
			})

			It("should fall back to the most recent session", func() {
				active, ok := manager.ActiveSession()
				Expect(ok).To(BeTrue())
				Expect(active.ID).To(Equal("s1"))
			})
		})

		When("loading the snapshot fails", func() {
			BeforeEach(func() {
				store.loadErr = errors.New("corrupt snapshot")
			})

			It("should start with one fresh session", func() {
				Expect(manager.Sessions()).To(HaveLen(1))
			})
		})
	})

	Describe("NewSession", func() {
		It("should prepend a fresh active session", func() {
			sess := manager.NewSession("en")
			Expect(sess.Title).To(Equal(SentinelTitle))
			Expect(manager.Sessions()).To(HaveLen(2))

			active, _ := manager.ActiveSession()
			Expect(active.ID).To(Equal(sess.ID))
		})

		It("should greet the fresh session", func() {
			sess := manager.NewSession("en")
			Expect(sess.Messages).To(HaveLen(1))
			Expect(sess.Messages[0].Role).To(Equal(RoleModel))
		})
	})

	Describe("Activate", func() {
		It("should switch the active session", func() {
			first, _ := manager.ActiveSession()
			second := manager.NewSession("en")

			sess, err := manager.Activate(first.ID, "en")
			Expect(err).NotTo(HaveOccurred())
			Expect(sess.ID).To(Equal(first.ID))

			active, _ := manager.ActiveSession()
			Expect(active.ID).NotTo(Equal(second.ID))
		})

		It("should not repeat the greeting", func() {
			first, _ := manager.ActiveSession()
			manager.NewSession("en")

			sess, err := manager.Activate(first.ID, "en")
			Expect(err).NotTo(HaveOccurred())
			Expect(sess.Messages).To(HaveLen(1))
		})

		It("should fail for an unknown id", func() {
			_, err := manager.Activate("missing", "en")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("DeleteSession", func() {
		It("should promote the most recent session when the active one goes", func() {
			first, _ := manager.ActiveSession()
			second := manager.NewSession("en")

			manager.DeleteSession(second.ID, "en")

			Expect(manager.Sessions()).To(HaveLen(1))
			active, ok := manager.ActiveSession()
			Expect(ok).To(BeTrue())
			Expect(active.ID).To(Equal(first.ID))
		})

		It("should create a fresh session when the last one goes", func() {
			only, _ := manager.ActiveSession()
			manager.DeleteSession(only.ID, "en")

			Expect(manager.Sessions()).To(HaveLen(1))
			active, ok := manager.ActiveSession()
			Expect(ok).To(BeTrue())
			Expect(active.ID).NotTo(Equal(only.ID))
			Expect(active.Messages).To(HaveLen(1))
		})

		It("should leave the active session alone when another goes", func() {
			first, _ := manager.ActiveSession()
			second := manager.NewSession("en")

			manager.DeleteSession(first.ID, "en")

			active, _ := manager.ActiveSession()
			Expect(active.ID).To(Equal(second.ID))
		})

		It("should ignore an unknown id", func() {
			manager.DeleteSession("missing", "en")
			Expect(manager.Sessions()).To(HaveLen(1))
		})
	})

	Describe("Send", func() {
		It("should append the user message and the reply", func() {
			msg, err := manager.Send(context.Background(), "How much on coffee?", "en")
			Expect(err).NotTo(HaveOccurred())
			Expect(msg.Role).To(Equal(RoleModel))
			Expect(msg.Text).To(Equal("You spent 42 on coffee."))

			active, _ := manager.ActiveSession()
			Expect(active.Messages).To(HaveLen(3))
			Expect(active.Messages[1]).To(Equal(Message{Role: RoleUser, Text: "How much on coffee?"}))
			Expect(active.Messages[2]).To(Equal(msg))
		})

		It("should replay the history without the new text", func() {
			_, err := manager.Send(context.Background(), "How much on coffee?", "en")
			Expect(err).NotTo(HaveOccurred())
			Expect(client.gotHistory).To(HaveLen(1))
			Expect(client.gotHistory[0].Role).To(Equal(RoleModel))
			Expect(client.gotText).To(Equal("How much on coffee?"))
		})

		It("should treat whitespace-only text as a no-op", func() {
			msg, err := manager.Send(context.Background(), "   ", "en")
			Expect(err).NotTo(HaveOccurred())
			Expect(msg).To(Equal(Message{}))
			Expect(client.calls).To(BeZero())

			active, _ := manager.ActiveSession()
			Expect(active.Messages).To(HaveLen(1))
		})

		When("the call fails", func() {
			BeforeEach(func() {
				client.err = errors.New("model unavailable")
			})

			It("should keep the user message and append the localized error", func() {
				msg, err := manager.Send(context.Background(), "How much on coffee?", "en")
				Expect(err).NotTo(HaveOccurred())
				Expect(msg.Role).To(Equal(RoleModel))
				Expect(msg.Text).To(Equal(locale.ChatError("en")))

				active, _ := manager.ActiveSession()
				Expect(active.Messages).To(HaveLen(3))
				Expect(active.Messages[1].Role).To(Equal(RoleUser))
			})

			It("should not infer a title", func() {
				_, err := manager.Send(context.Background(), "How much on coffee?", "en")
				Expect(err).NotTo(HaveOccurred())
				Expect(titler.calls).To(BeZero())

				active, _ := manager.ActiveSession()
				Expect(active.Title).To(Equal(SentinelTitle))
			})
		})

		When("the reply carries grounding places", func() {
			BeforeEach(func() {
				client.reply = &Reply{
					Text: "Try Cafe Central.",
					Places: []Place{
						{Title: "Cafe Central", URI: "https://maps.example/cafe-central"},
					},
				}
			})

			It("should append a sources block to the reply", func() {
				msg, err := manager.Send(context.Background(), "Cheap coffee nearby?", "en")
				Expect(err).NotTo(HaveOccurred())
				Expect(msg.Text).To(Equal("Try Cafe Central.\n\nSources:\n[Cafe Central](https://maps.example/cafe-central)"))
			})

			It("should raise the one-shot sources notice", func() {
				_, err := manager.Send(context.Background(), "Cheap coffee nearby?", "en")
				Expect(err).NotTo(HaveOccurred())
				Expect(manager.TakeSourcesNotice()).To(BeTrue())
				Expect(manager.TakeSourcesNotice()).To(BeFalse())
			})
		})
	})

	Describe("title inference", func() {
		It("should replace the sentinel title after the first exchange", func() {
			_, err := manager.Send(context.Background(), "How much on coffee?", "en")
			Expect(err).NotTo(HaveOccurred())

			active, _ := manager.ActiveSession()
			Expect(active.Title).To(Equal("Coffee Spending"))
			Expect(titler.calls).To(Equal(1))
		})

		It("should infer at most once", func() {
			_, err := manager.Send(context.Background(), "How much on coffee?", "en")
			Expect(err).NotTo(HaveOccurred())
			_, err = manager.Send(context.Background(), "And on groceries?", "en")
			Expect(err).NotTo(HaveOccurred())
			Expect(titler.calls).To(Equal(1))
		})

		When("inference fails", func() {
			BeforeEach(func() {
				titler.err = errors.New("model unavailable")
			})

			It("should keep the sentinel title", func() {
				_, err := manager.Send(context.Background(), "How much on coffee?", "en")
				Expect(err).NotTo(HaveOccurred())

				active, _ := manager.ActiveSession()
				Expect(active.Title).To(Equal(SentinelTitle))
			})
		})

		When("inference returns an empty title", func() {
			BeforeEach(func() {
				titler.title = "   "
			})

			It("should keep the sentinel title", func() {
				_, err := manager.Send(context.Background(), "How much on coffee?", "en")
				Expect(err).NotTo(HaveOccurred())

				active, _ := manager.ActiveSession()
				Expect(active.Title).To(Equal(SentinelTitle))
			})
		})
	})

	Describe("concurrent sends", func() {
		BeforeEach(func() {
			client.release = make(chan struct{})
			client.started = make(chan struct{}, 1)
		})

		It("should reject a second send while one is in flight", func() {
			done := make(chan Message, 1)
			go func() {
				msg, _ := manager.Send(context.Background(), "first question", "en")
				done <- msg
			}()
			Eventually(client.started).Should(Receive())

			_, err := manager.Send(context.Background(), "second question", "en")
			Expect(err).To(MatchError(ErrBusy))

			close(client.release)
			Eventually(done).Should(Receive())

			active, _ := manager.ActiveSession()
			texts := make([]string, len(active.Messages))
			for i, m := range active.Messages {
				texts[i] = m.Text
			}
			Expect(texts).To(ContainElement("first question"))
			Expect(texts).NotTo(ContainElement("second question"))
		})

		It("should route the completion to the session captured at send time", func() {
			original, _ := manager.ActiveSession()

			done := make(chan Message, 1)
			go func() {
				msg, _ := manager.Send(context.Background(), "first question", "en")
				done <- msg
			}()
			Eventually(client.started).Should(Receive())

			fresh := manager.NewSession("en")
			close(client.release)
			Eventually(done).Should(Receive())

			for _, sess := range manager.Sessions() {
				switch sess.ID {
				case original.ID:
					Expect(sess.Messages).To(HaveLen(3))
					Expect(sess.Messages[2].Text).To(Equal("You spent 42 on coffee."))
				case fresh.ID:
					Expect(sess.Messages).To(HaveLen(1))
				}
			}
		})

		It("should drop the completion when the session was deleted mid-flight", func() {
			original, _ := manager.ActiveSession()

			done := make(chan Message, 1)
			go func() {
				msg, _ := manager.Send(context.Background(), "first question", "en")
				done <- msg
			}()
			Eventually(client.started).Should(Receive())

			manager.DeleteSession(original.ID, "en")
			close(client.release)

			var msg Message
			Eventually(done).Should(Receive(&msg))
			Expect(msg).To(Equal(Message{}))

			for _, sess := range manager.Sessions() {
				Expect(sess.ID).NotTo(Equal(original.ID))
			}
		})
	})
})
