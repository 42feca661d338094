package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmslot/seamless-wallet/internal/domain"
	"github.com/mmslot/seamless-wallet/internal/settlement"
)

// SignatureHeader carries the provider's HMAC-SHA256 hex digest of the raw
// request body.
const SignatureHeader = "X-Signature"

const maxBodyBytes = 1 << 20

// SeamlessAdapter parses and authenticates seamless-wallet webhook deliveries.
type SeamlessAdapter struct {
	secretKey string
}

// NewSeamlessAdapter creates an adapter keyed with the shared webhook secret.
func NewSeamlessAdapter(secretKey string) *SeamlessAdapter {
	return &SeamlessAdapter{secretKey: secretKey}
}

// SeamlessRequest is the wire shape of one webhook delivery. Amounts arrive
// as decimal strings in currency units.
type SeamlessRequest struct {
	MemberID     string            `json:"MemberID"`
	MessageID    string            `json:"MessageID"`
	ProductID    int64             `json:"ProductID"`
	RequestTime  string            `json:"RequestDateTime"`
	Transactions []SeamlessTxnItem `json:"Transactions"`
}

// SeamlessTxnItem is one betting transaction within a delivery.
type SeamlessTxnItem struct {
	Status            int    `json:"Status"`
	ProductCode       string `json:"ProductID"`
	GameTypeCode      string `json:"GameType"`
	TransactionID     string `json:"TransactionID"`
	WagerID           string `json:"WagerID"`
	BetAmount         string `json:"BetAmount"`
	TransactionAmount string `json:"TransactionAmount"`
	PayoutAmount      string `json:"PayoutAmount"`
	ValidBetAmount    string `json:"ValidBetAmount"`
}

// VerifySignature validates the HMAC-SHA256 hex digest over the raw body.
func (a *SeamlessAdapter) VerifySignature(body []byte, providedHash string) bool {
	mac := hmac.New(sha256.New, []byte(a.secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(providedHash))
}

// Sign computes the digest a caller must send; used by tests and tooling.
func (a *SeamlessAdapter) Sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(a.secretKey))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// ParseRequest reads and decodes a webhook delivery from an HTTP request. The
// raw body is returned alongside so the caller can verify the signature and
// persist the payload verbatim.
func (a *SeamlessAdapter) ParseRequest(r *http.Request) (*SeamlessRequest, []byte, error) {
	body, err := readBody(r, maxBodyBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("read body: %w", err)
	}

	var req SeamlessRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, body, fmt.Errorf("unmarshal: %w", err)
	}
	return &req, body, nil
}

// ToSettlementRequest converts a wire delivery into the settlement layer's
// request, translating decimal-string amounts to cents.
func (a *SeamlessAdapter) ToSettlementRequest(req *SeamlessRequest, rawBody []byte) (settlement.Request, error) {
	userID, err := strconv.ParseInt(req.MemberID, 10, 64)
	if err != nil || userID <= 0 {
		return settlement.Request{}, domain.ErrValidation("invalid MemberID")
	}

	requestTime := time.Now().UTC()
	if req.RequestTime != "" {
		parsed, err := time.Parse(time.RFC3339, req.RequestTime)
		if err != nil {
			return settlement.Request{}, domain.ErrValidation("invalid RequestDateTime")
		}
		requestTime = parsed
	}

	lines := make([]domain.LineItem, 0, len(req.Transactions))
	for _, txn := range req.Transactions {
		line, err := toLineItem(txn)
		if err != nil {
			return settlement.Request{}, err
		}
		lines = append(lines, line)
	}

	return settlement.Request{
		UserID:      userID,
		MessageID:   req.MessageID,
		ProductID:   req.ProductID,
		RequestTime: requestTime,
		RawPayload:  json.RawMessage(rawBody),
		Lines:       lines,
	}, nil
}

func toLineItem(txn SeamlessTxnItem) (domain.LineItem, error) {
	betAmount, err := parseAmount(txn.BetAmount)
	if err != nil {
		return domain.LineItem{}, domain.ErrValidation(fmt.Sprintf("invalid BetAmount %q", txn.BetAmount))
	}
	transactionAmount, err := parseAmount(txn.TransactionAmount)
	if err != nil {
		return domain.LineItem{}, domain.ErrValidation(fmt.Sprintf("invalid TransactionAmount %q", txn.TransactionAmount))
	}
	payoutAmount, err := parseAmount(txn.PayoutAmount)
	if err != nil {
		return domain.LineItem{}, domain.ErrValidation(fmt.Sprintf("invalid PayoutAmount %q", txn.PayoutAmount))
	}
	validBetAmount, err := parseAmount(txn.ValidBetAmount)
	if err != nil {
		return domain.LineItem{}, domain.ErrValidation(fmt.Sprintf("invalid ValidBetAmount %q", txn.ValidBetAmount))
	}

	return domain.LineItem{
		Status:            txn.Status,
		ProductCode:       txn.ProductCode,
		GameTypeCode:      txn.GameTypeCode,
		TransactionID:     txn.TransactionID,
		WagerID:           txn.WagerID,
		BetAmount:         betAmount,
		TransactionAmount: transactionAmount,
		PayoutAmount:      payoutAmount,
		ValidBetAmount:    validBetAmount,
	}, nil
}

// parseAmount converts a decimal string in currency units to integer cents.
// "10.50" → 1050, "-1" → -100. Empty means zero. Sub-cent precision is
// rejected rather than rounded.
func parseAmount(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	cents := d.Shift(2)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("amount %s has sub-cent precision", s)
	}
	return cents.IntPart(), nil
}

// FormatCents renders integer cents as a decimal string: 1050 → "10.50".
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

func readBody(r *http.Request, limit int64) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(io.LimitReader(r.Body, limit))
}
