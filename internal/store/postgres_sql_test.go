package store

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Без сервера: gorm только строит SQL.
var _ = Describe("PostgresBackend SQL", func() {
	var db *gorm.DB

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost user=helpdesk dbname=helpdesk sslmode=disable"}), &gorm.Config{
			DryRun:               true,
			DisableAutomaticPing: true,
			Logger:               logger.Discard,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("locks the collection by name for the rest of the transaction", func() {
		sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB { return lockQuery(tx, "tickets") })
		Expect(sql).To(ContainSubstring("pg_advisory_xact_lock(hashtext('tickets'))"))
	})

	It("reads one row of the collections table", func() {
		sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
			var row collectionRow
			return selectQuery(tx, "faq", &row)
		})
		Expect(sql).To(ContainSubstring(`FROM "collections"`))
		Expect(sql).To(ContainSubstring("name = 'faq'"))
		Expect(sql).To(ContainSubstring("LIMIT 1"))
	})

	It("upserts the whole collection on the name key", func() {
		sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
			return upsertQuery(tx, &collectionRow{Name: "stats", LastID: 3, Records: json.RawMessage(`[]`)})
		})
		Expect(sql).To(HavePrefix(`INSERT INTO "collections"`))
		Expect(sql).To(ContainSubstring(`ON CONFLICT ("name") DO UPDATE SET`))
		for _, col := range []string{"last_id", "records", "updated_at"} {
			Expect(sql).To(ContainSubstring(`"excluded"."` + col + `"`))
		}
	})
})
