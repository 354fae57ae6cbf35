package models

type TxStatus string

const (
	TxStatusPending TxStatus = "pending"
	TxStatusSuccess TxStatus = "success"
	TxStatusFailed  TxStatus = "failed"
)

// TransactionObject is the unsigned transaction descriptor handed to the
// wallet for signing, field names matching what eth_sendTransaction expects.
type TransactionObject struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Value    string `json:"value"`
	Gas      string `json:"gas"`
	GasPrice string `json:"gasPrice"`
}

type CreateTransactionRequest struct {
	Recipient     string `json:"recipient" binding:"required"`
	Amount        string `json:"amount" binding:"required"`
	SenderAddress string `json:"senderAddress" binding:"required"`
}

type CreateTransactionResponse struct {
	TransactionObject TransactionObject `json:"transactionObject"`
	EstimatedGasFee   string            `json:"estimatedGasFee"`
}

type TransactionStatusResponse struct {
	Status      TxStatus `json:"status"`
	BlockNumber int64    `json:"blockNumber,omitempty"`
}
