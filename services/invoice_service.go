package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	config "github.com/edupay/payment_service/configs"
	"github.com/edupay/payment_service/models"
	"github.com/edupay/payment_service/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InvoiceService renders invoices for completed transactions as PDFs and
// stores them. It reads ledger rows only; it never mutates them.
type InvoiceService struct {
	db *gorm.DB
}

func NewInvoiceService(db *gorm.DB) *InvoiceService {
	return &InvoiceService{db: db}
}

// GenerateInvoice produces (or returns the existing) invoice PDF for a
// completed or refunded transaction.
func (s *InvoiceService) GenerateInvoice(transactionID uuid.UUID) (*models.Invoice, error) {
	var existing models.Invoice
	if err := s.db.First(&existing, "transaction_id = ?", transactionID).Error; err == nil {
		return &existing, nil
	}

	var txn models.Transaction
	if err := s.db.First(&txn, "id = ?", transactionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	if txn.Status != models.TxnStatusCompleted && txn.Status != models.TxnStatusRefunded {
		return nil, errors.New("invoices are only issued for completed transactions")
	}

	var invoice models.Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		number, err := utils.GenerateInvoiceNumber(tx, time.Now())
		if err != nil {
			return err
		}

		htmlData, err := renderInvoiceHTML(&txn, number)
		if err != nil {
			return err
		}

		pdfBytes, err := generatePDFFromHTML(htmlData)
		if err != nil {
			return err
		}

		uploadURL, err := uploadToCloudinary(pdfBytes, number)
		if err != nil {
			return err
		}

		invoice = models.Invoice{
			TransactionID: txn.ID,
			InvoiceNumber: number,
			PdfURL:        uploadURL,
			IssuedAt:      time.Now(),
		}
		return tx.Create(&invoice).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Generated invoice %s for transaction %s.", invoice.InvoiceNumber, txn.ID)
	return &invoice, nil
}

func (s *InvoiceService) GetInvoiceByTransaction(transactionID uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := s.db.First(&invoice, "transaction_id = ?", transactionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

func renderInvoiceHTML(txn *models.Transaction, invoiceNumber string) (string, error) {
	tmpl, err := template.ParseFiles("templates/invoice.html")
	if err != nil {
		return "", err
	}

	kindLabel := "Payment"
	if txn.Kind == models.TxnKindRefund {
		kindLabel = "Refund"
	}

	data := struct {
		InvoiceNumber string
		Kind          string
		Amount        string
		Currency      string
		Description   string
		CourseID      string
		IssuedDate    string
	}{
		InvoiceNumber: invoiceNumber,
		Kind:          kindLabel,
		Amount:        txn.Amount.StringFixed(2),
		Currency:      txn.Currency,
		Description:   txn.Description,
		CourseID:      txn.CourseID.String(),
		IssuedDate:    time.Now().Format("January 2, 2006"),
	}

	var renderedHTML bytes.Buffer
	if err := tmpl.Execute(&renderedHTML, data); err != nil {
		return "", err
	}
	return renderedHTML.String(), nil
}

func generatePDFFromHTML(htmlContent string) ([]byte, error) {
	ctx, cancel := chromedp.NewContext(context.Background())
	defer cancel()

	var pdfBuffer []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, htmlContent).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			pdf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdfBuffer = pdf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdfBuffer, nil
}

func uploadToCloudinary(fileBytes []byte, invoiceNumber string) (string, error) {
	cld, err := cloudinary.NewFromURL(config.Config("CLOUDINARY_URL"))
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	uploadParams := uploader.UploadParams{
		PublicID:     fmt.Sprintf("invoices/%s_%s", invoiceNumber, uuid.New().String()),
		Folder:       "edupay_invoices",
		ResourceType: "raw",
	}

	uploadResult, err := cld.Upload.Upload(ctx, bytes.NewReader(fileBytes), uploadParams)
	if err != nil {
		return "", err
	}

	return uploadResult.SecureURL, nil
}
