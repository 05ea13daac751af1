package store

const (
	KeyUserRecord  = "user:%s:record"
	KeyUserLedger  = "user:%s:ledger"
	KeyEmailIndex  = "index:email:%s"
	KeyCodeIndex   = "index:code:%s"
	KeyUserCounter = "users:count"
)
