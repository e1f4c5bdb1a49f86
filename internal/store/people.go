package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/ansel1/merry"
	"github.com/jmoiron/sqlx"

	"tradedesk/internal/audit"
	"tradedesk/internal/auth"
	"tradedesk/internal/models"
	"tradedesk/internal/validation"
)

func getOne(ctx context.Context, q sqlx.QueryerContext, dest interface{}, e *Entity, id string) error {
	err := sqlx.GetContext(ctx, q, dest, "SELECT * FROM "+e.Table+" WHERE "+e.Key+" = ?", id)
	if err == sql.ErrNoRows {
		return notFound(e.Label, id)
	}
	if err != nil {
		return merry.Append(err, "get "+e.Label)
	}
	return nil
}

// NewEmployee is the input for AddEmployee. ID is generated when empty.
type NewEmployee struct {
	ID         string      `json:"emp_id"`
	Name       string      `json:"emp_name"`
	Department string      `json:"department"`
	Position   string      `json:"position"`
	Contact    string      `json:"contact"`
	Account    string      `json:"account"`
	Password   string      `json:"password"`
	HireDate   string      `json:"hire_date"`
	Role       models.Role `json:"role"`
	Remark     string      `json:"remark"`
}

func (s *Store) AddEmployee(ctx context.Context, empID string, in NewEmployee) (models.Employee, error) {
	var ve validation.ValidationErrors
	validation.RequireField(&ve, "emp_name", in.Name)
	validation.RequireField(&ve, "account", in.Account)
	validation.ValidateDate(&ve, "hire_date", in.HireDate)
	if in.Role == "" {
		in.Role = models.RoleReadOnly
	}
	validation.ValidateEnum(&ve, "role", string(in.Role), validation.ValidRoles)
	if err := auth.ValidatePasswordStrength(in.Password); err != nil {
		ve.Add("password", err.Error())
	}
	if in.ID != "" && len(in.ID) != 3 {
		ve.Add("emp_id", "must be 3 characters")
	}
	if ve.HasErrors() {
		return models.Employee{}, invalidf("%s", ve.Error())
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.Employee{}, err
	}

	var out models.Employee
	err = s.InTx(ctx, empID, func(tx *Tx) error {
		id := in.ID
		if id == "" {
			next, err := nextSeqID(ctx, tx, "employees", "emp_id", "", 3)
			if err != nil {
				return err
			}
			id = next
		}
		emp := models.Employee{
			ID: id, Name: strings.TrimSpace(in.Name), Department: in.Department, Position: in.Position,
			Contact: in.Contact, Account: strings.TrimSpace(in.Account), PasswordHash: hash,
			HireDate: in.HireDate, Role: in.Role, Remark: in.Remark,
		}
		_, err := sqlx.NamedExecContext(ctx, tx, `INSERT INTO employees
			(emp_id, emp_name, department, position, contact, account, password_hash, hire_date, role, remark)
			VALUES (:emp_id, :emp_name, :department, :position, :contact, :account, :password_hash, :hire_date, :role, :remark)`, emp)
		if err != nil {
			return classify(err, opInsert, "employee "+id)
		}
		if err := getOne(ctx, tx, &out, entities[Employees], id); err != nil {
			return err
		}
		return tx.Audit(ctx, audit.ActionCreate, Employees, id, "employee "+emp.Name)
	})
	return out, err
}

func (s *Store) GetEmployee(ctx context.Context, id string) (models.Employee, error) {
	var e models.Employee
	err := getOne(ctx, s.db, &e, entities[Employees], id)
	return e, err
}

func (tx *Tx) GetEmployee(ctx context.Context, id string) (models.Employee, error) {
	var e models.Employee
	err := getOne(ctx, tx, &e, entities[Employees], id)
	return e, err
}

// VerifyEmployee checks account and password. Disabled and locked accounts
// are refused; failed attempts count towards the lockout.
func (s *Store) VerifyEmployee(ctx context.Context, account, password string) (models.Employee, error) {
	var e models.Employee
	err := s.db.GetContext(ctx, &e, "SELECT * FROM employees WHERE account = ?", account)
	if err == sql.ErrNoRows {
		return e, auth.ErrBadCredentials.Here()
	}
	if err != nil {
		return e, merry.Append(err, "get employee")
	}
	if e.Role == models.RoleDisabled {
		return models.Employee{}, auth.ErrDisabled.Here()
	}
	if auth.IsLocked(e.LockedUntil, time.Now()) {
		return models.Employee{}, auth.ErrAccountLocked.Here()
	}
	if !auth.CheckPassword(e.PasswordHash, password) {
		if err := auth.IncrementFailedLoginAttempts(ctx, s.db, account); err != nil {
			s.log.PrintErr("count failed login", "account", account, "err", err)
		}
		return models.Employee{}, auth.ErrBadCredentials.Here()
	}
	if e.FailedLoginAttempts > 0 || e.LockedUntil != nil {
		if err := auth.ResetFailedLoginAttempts(ctx, s.db, account); err != nil {
			s.log.PrintErr("reset failed logins", "account", account, "err", err)
		}
	}
	return e, nil
}

// SetPassword replaces an employee's password.
func (s *Store) SetPassword(ctx context.Context, empID, id, password string) error {
	if err := auth.ValidatePasswordStrength(password); err != nil {
		return invalidf("password: %s", err.Error())
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return s.InTx(ctx, empID, func(tx *Tx) error {
		res, err := tx.ExecContext(ctx, "UPDATE employees SET password_hash = ? WHERE emp_id = ?", hash, id)
		if err != nil {
			return merry.Append(err, "set password")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound("employee", id)
		}
		return tx.Audit(ctx, audit.ActionUpdate, Employees, id, "password changed")
	})
}

// NewClient is the input for AddClient. MarginRate nil means the default.
type NewClient struct {
	ID           string   `json:"cli_id"`
	Name         string   `json:"cli_name"`
	Region       string   `json:"region"`
	CreditLevel  string   `json:"credit_level"`
	MarginRate   *float64 `json:"margin_rate"`
	EmpID        string   `json:"emp_id"`
	Website      string   `json:"website"`
	PaymentTerms string   `json:"payment_terms"`
	Email        string   `json:"email"`
	Phone        string   `json:"phone"`
	Remark       string   `json:"remark"`
}

func (s *Store) AddClient(ctx context.Context, empID string, in NewClient) (models.Client, error) {
	c := models.Client{
		ID: strings.TrimSpace(in.ID), Name: strings.TrimSpace(in.Name), Region: in.Region,
		CreditLevel: in.CreditLevel, MarginRate: models.DefaultMarginRate, EmpID: strings.TrimSpace(in.EmpID),
		Website: in.Website, PaymentTerms: in.PaymentTerms, Email: in.Email, Phone: in.Phone, Remark: in.Remark,
	}
	if in.MarginRate != nil {
		c.MarginRate = *in.MarginRate
	}
	if c.Region == "" {
		c.Region = "Korea"
	}
	if c.CreditLevel == "" {
		c.CreditLevel = "A"
	}
	var ve validation.ValidationErrors
	validation.RequireField(&ve, "cli_name", c.Name)
	validation.RequireField(&ve, "emp_id", c.EmpID)
	validation.ValidateNonNegativeFloat(&ve, "margin_rate", c.MarginRate)
	validation.ValidateEnum(&ve, "credit_level", c.CreditLevel, validation.ValidCreditLevels)
	validation.ValidateEmail(&ve, "email", c.Email)
	if ve.HasErrors() {
		return models.Client{}, invalidf("%s", ve.Error())
	}

	var out models.Client
	err := s.InTx(ctx, empID, func(tx *Tx) error {
		if c.ID == "" {
			id, err := nextSeqID(ctx, tx, "clients", "cli_id", "C", 3)
			if err != nil {
				return err
			}
			c.ID = id
		}
		_, err := sqlx.NamedExecContext(ctx, tx, `INSERT INTO clients
			(cli_id, cli_name, region, credit_level, margin_rate, emp_id, website, payment_terms, email, phone, remark)
			VALUES (:cli_id, :cli_name, :region, :credit_level, :margin_rate, :emp_id, :website, :payment_terms, :email, :phone, :remark)`, c)
		if err != nil {
			return classify(err, opInsert, "client "+c.ID)
		}
		if err := getOne(ctx, tx, &out, entities[Clients], c.ID); err != nil {
			return err
		}
		return tx.Audit(ctx, audit.ActionCreate, Clients, c.ID, "client "+c.Name)
	})
	return out, err
}

func (s *Store) GetClient(ctx context.Context, id string) (models.Client, error) {
	var c models.Client
	err := getOne(ctx, s.db, &c, entities[Clients], id)
	return c, err
}

func (tx *Tx) GetClient(ctx context.Context, id string) (models.Client, error) {
	var c models.Client
	err := getOne(ctx, tx, &c, entities[Clients], id)
	return c, err
}

// NewVendor is the input for AddVendor.
type NewVendor struct {
	ID      string `json:"vendor_id"`
	Name    string `json:"vendor_name"`
	Address string `json:"address"`
	QQ      string `json:"qq"`
	WeChat  string `json:"wechat"`
	Email   string `json:"email"`
	Remark  string `json:"remark"`
}

func (s *Store) AddVendor(ctx context.Context, empID string, in NewVendor) (models.Vendor, error) {
	v := models.Vendor{
		ID: strings.TrimSpace(in.ID), Name: strings.TrimSpace(in.Name), Address: in.Address,
		QQ: in.QQ, WeChat: in.WeChat, Email: in.Email, Remark: in.Remark,
	}
	var ve validation.ValidationErrors
	validation.RequireField(&ve, "vendor_name", v.Name)
	validation.ValidateEmail(&ve, "email", v.Email)
	if ve.HasErrors() {
		return models.Vendor{}, invalidf("%s", ve.Error())
	}

	var out models.Vendor
	err := s.InTx(ctx, empID, func(tx *Tx) error {
		if v.ID == "" {
			id, err := nextSeqID(ctx, tx, "vendors", "vendor_id", "V", 3)
			if err != nil {
				return err
			}
			v.ID = id
		}
		_, err := sqlx.NamedExecContext(ctx, tx, `INSERT INTO vendors
			(vendor_id, vendor_name, address, qq, wechat, email, remark)
			VALUES (:vendor_id, :vendor_name, :address, :qq, :wechat, :email, :remark)`, v)
		if err != nil {
			return classify(err, opInsert, "vendor "+v.ID)
		}
		if err := getOne(ctx, tx, &out, entities[Vendors], v.ID); err != nil {
			return err
		}
		return tx.Audit(ctx, audit.ActionCreate, Vendors, v.ID, "vendor "+v.Name)
	})
	return out, err
}

func (s *Store) GetVendor(ctx context.Context, id string) (models.Vendor, error) {
	var v models.Vendor
	err := getOne(ctx, s.db, &v, entities[Vendors], id)
	return v, err
}

func (tx *Tx) GetVendor(ctx context.Context, id string) (models.Vendor, error) {
	var v models.Vendor
	err := getOne(ctx, tx, &v, entities[Vendors], id)
	return v, err
}
