package database

var tables = []struct {
	name string
	ddl  string
}{
	{"employees", `CREATE TABLE IF NOT EXISTS employees (
		emp_id TEXT PRIMARY KEY CHECK(length(emp_id) = 3),
		emp_name TEXT NOT NULL,
		department TEXT NOT NULL DEFAULT '',
		position TEXT NOT NULL DEFAULT '',
		contact TEXT NOT NULL DEFAULT '',
		account TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		hire_date TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'readonly' CHECK(role IN ('readonly','operator','admin','disabled')),
		remark TEXT NOT NULL DEFAULT '',
		failed_login_attempts INTEGER NOT NULL DEFAULT 0,
		locked_until TEXT,
		created_at TEXT NOT NULL DEFAULT (datetime('now','localtime'))
	)`},
	{"clients", `CREATE TABLE IF NOT EXISTS clients (
		cli_id TEXT PRIMARY KEY,
		cli_name TEXT NOT NULL,
		region TEXT NOT NULL DEFAULT 'Korea',
		credit_level TEXT NOT NULL DEFAULT 'A',
		margin_rate REAL NOT NULL DEFAULT 10.0,
		emp_id TEXT NOT NULL,
		website TEXT NOT NULL DEFAULT '',
		payment_terms TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		remark TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL DEFAULT (datetime('now','localtime')),
		FOREIGN KEY (emp_id) REFERENCES employees(emp_id) ON UPDATE CASCADE
	)`},
	{"vendors", `CREATE TABLE IF NOT EXISTS vendors (
		vendor_id TEXT PRIMARY KEY,
		vendor_name TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		qq TEXT NOT NULL DEFAULT '',
		wechat TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		remark TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL DEFAULT (datetime('now','localtime'))
	)`},
	{"daily_rates", `CREATE TABLE IF NOT EXISTS daily_rates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		record_date TEXT NOT NULL,
		currency_code TEXT NOT NULL,
		exchange_rate REAL NOT NULL CHECK(exchange_rate > 0),
		created_at TEXT NOT NULL DEFAULT (datetime('now','localtime')),
		UNIQUE(record_date, currency_code)
	)`},
	{"quotes", `CREATE TABLE IF NOT EXISTS quotes (
		quote_id TEXT PRIMARY KEY,
		quote_date TEXT NOT NULL DEFAULT '',
		cli_id TEXT NOT NULL,
		inquiry_mpn TEXT NOT NULL,
		quoted_mpn TEXT NOT NULL DEFAULT '',
		inquiry_brand TEXT NOT NULL DEFAULT '',
		inquiry_qty INTEGER NOT NULL DEFAULT 0,
		target_price_rmb REAL NOT NULL DEFAULT 0,
		cost_price_rmb REAL NOT NULL DEFAULT 0,
		date_code TEXT NOT NULL DEFAULT '',
		delivery_date TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'inquiring' CHECK(status IN ('inquiring','offered','cancelled')),
		remark TEXT NOT NULL DEFAULT '',
		is_transferred INTEGER NOT NULL DEFAULT 0 CHECK(is_transferred IN (0,1)),
		created_at TEXT NOT NULL DEFAULT (datetime('now','localtime')),
		FOREIGN KEY (cli_id) REFERENCES clients(cli_id) ON UPDATE CASCADE
	)`},
	{"offers", `CREATE TABLE IF NOT EXISTS offers (
		offer_id TEXT PRIMARY KEY,
		offer_date TEXT NOT NULL DEFAULT '',
		quote_id TEXT UNIQUE,
		inquiry_mpn TEXT NOT NULL DEFAULT '',
		quoted_mpn TEXT NOT NULL DEFAULT '',
		inquiry_brand TEXT NOT NULL DEFAULT '',
		quoted_brand TEXT NOT NULL DEFAULT '',
		inquiry_qty INTEGER NOT NULL DEFAULT 0,
		actual_qty INTEGER NOT NULL DEFAULT 0,
		quoted_qty INTEGER NOT NULL DEFAULT 0,
		cost_price_rmb REAL NOT NULL DEFAULT 0,
		offer_price_rmb REAL NOT NULL DEFAULT 0,
		price_krw REAL NOT NULL DEFAULT 0,
		price_usd REAL NOT NULL DEFAULT 0,
		platform TEXT NOT NULL DEFAULT '',
		vendor_id TEXT,
		date_code TEXT NOT NULL DEFAULT '',
		delivery_date TEXT NOT NULL DEFAULT '',
		emp_id TEXT NOT NULL,
		offer_statement TEXT NOT NULL DEFAULT '',
		remark TEXT NOT NULL DEFAULT '',
		is_transferred INTEGER NOT NULL DEFAULT 0 CHECK(is_transferred IN (0,1)),
		created_at TEXT NOT NULL DEFAULT (datetime('now','localtime')),
		FOREIGN KEY (quote_id) REFERENCES quotes(quote_id),
		FOREIGN KEY (vendor_id) REFERENCES vendors(vendor_id),
		FOREIGN KEY (emp_id) REFERENCES employees(emp_id)
	)`},
	{"sales_orders", `CREATE TABLE IF NOT EXISTS sales_orders (
		order_id TEXT PRIMARY KEY,
		order_no TEXT NOT NULL UNIQUE,
		order_date TEXT NOT NULL DEFAULT '',
		cli_id TEXT NOT NULL,
		offer_id TEXT,
		inquiry_mpn TEXT NOT NULL DEFAULT '',
		inquiry_brand TEXT NOT NULL DEFAULT '',
		qty INTEGER NOT NULL DEFAULT 0,
		price_rmb REAL NOT NULL DEFAULT 0,
		price_krw REAL NOT NULL DEFAULT 0,
		price_usd REAL NOT NULL DEFAULT 0,
		cost_price_rmb REAL NOT NULL DEFAULT 0,
		is_finished INTEGER NOT NULL DEFAULT 0 CHECK(is_finished IN (0,1)),
		is_paid INTEGER NOT NULL DEFAULT 0 CHECK(is_paid IN (0,1)),
		paid_amount REAL NOT NULL DEFAULT 0,
		return_status TEXT NOT NULL DEFAULT 'normal' CHECK(return_status IN ('normal','partial_return','returned')),
		remark TEXT NOT NULL DEFAULT '',
		is_transferred INTEGER NOT NULL DEFAULT 0 CHECK(is_transferred IN (0,1)),
		created_at TEXT NOT NULL DEFAULT (datetime('now','localtime')),
		FOREIGN KEY (cli_id) REFERENCES clients(cli_id),
		FOREIGN KEY (offer_id) REFERENCES offers(offer_id)
	)`},
	{"purchase_orders", `CREATE TABLE IF NOT EXISTS purchase_orders (
		buy_id TEXT PRIMARY KEY,
		buy_date TEXT NOT NULL DEFAULT '',
		order_id TEXT,
		vendor_id TEXT,
		buy_mpn TEXT NOT NULL DEFAULT '',
		buy_brand TEXT NOT NULL DEFAULT '',
		buy_price_rmb REAL NOT NULL DEFAULT 0,
		buy_qty INTEGER NOT NULL DEFAULT 0,
		sales_price_rmb REAL NOT NULL DEFAULT 0,
		total_amount REAL NOT NULL DEFAULT 0,
		is_source_confirmed INTEGER NOT NULL DEFAULT 0 CHECK(is_source_confirmed IN (0,1)),
		is_ordered INTEGER NOT NULL DEFAULT 0 CHECK(is_ordered IN (0,1)),
		is_instock INTEGER NOT NULL DEFAULT 0 CHECK(is_instock IN (0,1)),
		is_shipped INTEGER NOT NULL DEFAULT 0 CHECK(is_shipped IN (0,1)),
		remark TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL DEFAULT (datetime('now','localtime')),
		FOREIGN KEY (order_id) REFERENCES sales_orders(order_id),
		FOREIGN KEY (vendor_id) REFERENCES vendors(vendor_id)
	)`},
	{"audit_log", `CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		emp_id TEXT NOT NULL DEFAULT '',
		action TEXT NOT NULL,
		module TEXT NOT NULL,
		record_id TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL DEFAULT (datetime('now','localtime'))
	)`},
}

var indexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_quotes_cli_id ON quotes(cli_id)",
	"CREATE INDEX IF NOT EXISTS idx_offers_vendor_id ON offers(vendor_id)",
	"CREATE INDEX IF NOT EXISTS idx_offers_emp_id ON offers(emp_id)",
	"CREATE INDEX IF NOT EXISTS idx_sales_orders_offer_id ON sales_orders(offer_id)",
	"CREATE INDEX IF NOT EXISTS idx_sales_orders_cli_id ON sales_orders(cli_id)",
	"CREATE INDEX IF NOT EXISTS idx_purchase_orders_order_id ON purchase_orders(order_id)",
	"CREATE INDEX IF NOT EXISTS idx_purchase_orders_vendor_id ON purchase_orders(vendor_id)",
	"CREATE INDEX IF NOT EXISTS idx_daily_rates_code_date ON daily_rates(currency_code, record_date)",
	"CREATE INDEX IF NOT EXISTS idx_audit_log_record ON audit_log(module, record_id)",
}

var columnUpgrades = []string{
	`ALTER TABLE employees ADD COLUMN failed_login_attempts INTEGER NOT NULL DEFAULT 0`,
	`ALTER TABLE employees ADD COLUMN locked_until TEXT`,
	`ALTER TABLE offers ADD COLUMN price_krw REAL NOT NULL DEFAULT 0`,
	`ALTER TABLE offers ADD COLUMN price_usd REAL NOT NULL DEFAULT 0`,
	`ALTER TABLE sales_orders ADD COLUMN qty INTEGER NOT NULL DEFAULT 0`,
	`ALTER TABLE sales_orders ADD COLUMN return_status TEXT NOT NULL DEFAULT 'normal'`,
}
