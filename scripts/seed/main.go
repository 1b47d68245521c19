// Command seed writes a synthetic upload file for local demos and load tests.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"strconv"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/odyssey-erp/invoice-insights/internal/reference"
	"github.com/odyssey-erp/invoice-insights/internal/validation"
)

func main() {
	out := flag.String("out", "sample-invoices.csv", "output file")
	invoiceCount := flag.Int("invoices", 500, "number of invoice rows")
	supplierCount := flag.Int("suppliers", 25, "number of distinct suppliers")
	days := flag.Int("days", 120, "spread invoice dates over this many past days")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	if *invoiceCount <= 0 || *supplierCount <= 0 || *days <= 0 {
		log.Fatal("invoices, suppliers and days must be positive")
	}

	rng := rand.New(rand.NewPCG(*seed, *seed))
	records := [][]string{validation.RequiredColumns()}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	currencies := reference.Currencies()
	statuses := reference.InvoiceStatuses()

	for i := 0; i < *invoiceCount; i++ {
		supplier := rng.IntN(*supplierCount) + 1
		issued := today.AddDate(0, 0, -rng.IntN(*days))
		due := issued.AddDate(0, 0, 15+rng.IntN(45))
		cost := float64(rng.IntN(500000)+1000) / 100

		row := map[string]string{
			validation.ColInvoiceID:                 fmt.Sprintf("INV-%06d", i+1),
			validation.ColInvoiceDate:               issued.Format(validation.DateLayout),
			validation.ColInvoiceDueDate:            due.Format(validation.DateLayout),
			validation.ColInvoiceCost:               strconv.FormatFloat(cost, 'f', 2, 64),
			validation.ColInvoiceCurrency:           currencies[rng.IntN(len(currencies))],
			validation.ColInvoiceStatus:             statuses[rng.IntN(len(statuses))],
			validation.ColSupplierInternalID:        fmt.Sprintf("SUP-%03d", supplier),
			validation.ColSupplierExternalID:        fmt.Sprintf("EXT-%03d", supplier),
			validation.ColSupplierCompanyName:       fmt.Sprintf("Supplier %03d Ltd", supplier),
			validation.ColSupplierAddress:           fmt.Sprintf("%d Market Street", supplier),
			validation.ColSupplierCity:              "London",
			validation.ColSupplierCountry:           "United Kingdom",
			validation.ColSupplierContactName:       fmt.Sprintf("Contact %03d", supplier),
			validation.ColSupplierPhone:             fmt.Sprintf("+44 20 7946 %04d", supplier),
			validation.ColSupplierEmail:             fmt.Sprintf("billing%03d@example.com", supplier),
			validation.ColSupplierBankCode:          "BARC",
			validation.ColSupplierBankBranchCode:    fmt.Sprintf("20-%02d-%02d", supplier%100, supplier%7),
			validation.ColSupplierBankAccountNumber: fmt.Sprintf("%08d", supplier*7919),
			validation.ColSupplierStatus:            reference.SupplierStatuses()[supplier%2],
			validation.ColSupplierStockValue:        strconv.Itoa(1000 + supplier*10),
			validation.ColSupplierWithholdingTax:    "5",
		}
		record := make([]string, 0, len(records[0]))
		for _, col := range records[0] {
			record = append(record, row[col])
		}
		records = append(records, record)
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		log.Fatalf("build frame: %v", df.Err)
	}

	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("create %s: %v", *out, err)
	}
	defer f.Close()
	if err := df.WriteCSV(f); err != nil {
		log.Fatalf("write %s: %v", *out, err)
	}
	fmt.Printf("→ wrote %d invoices for %d suppliers to %s\n", *invoiceCount, *supplierCount, *out)
}
