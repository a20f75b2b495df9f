package ui

import (
	"bufio"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/cachemir/custdb/pkg/client"
	"github.com/cachemir/custdb/pkg/protocol"
	"github.com/cachemir/custdb/pkg/store"
)

// Backend is the set of operations the menu drives. *client.Client
// implements it.
type Backend interface {
	Find(name string) (store.Record, error)
	Add(rec store.Record) (string, error)
	Delete(name string) (string, error)
	UpdateAge(name, age string) (string, error)
	UpdateAddress(name, address string) (string, error)
	UpdatePhone(name, phone string) (string, error)
	List() ([]store.Record, error)
}

// Prompt labels.
const (
	labelName    = "name"
	labelAge     = "age or press Enter to leave it empty"
	labelAddress = "address or press Enter to leave it empty"
	labelPhone   = "phone in XXX XXX-XXXX format or press Enter to leave it empty"
)

var menuItems = []string{
	"1. Find customer",
	"2. Add customer",
	"3. Delete customer",
	"4. Update customer age",
	"5. Update customer address",
	"6. Update customer phone",
	"7. Print report",
	"8. Exit",
}

var (
	// errCancelled is returned by ask when the user leaves the re-enter menu.
	errCancelled = errors.New("cancelled")
	// errInputClosed is returned by ask at end of input.
	errInputClosed = errors.New("input closed")
)

// Menu is the interactive "Customer DB Menu".
type Menu struct {
	backend Backend
	in      *bufio.Scanner
	out     *Printer
	logger  *zap.Logger
}

// NewMenu returns a menu reading answers from in and writing to out.
func NewMenu(backend Backend, in io.Reader, out io.Writer, logger *zap.Logger) *Menu {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Menu{
		backend: backend,
		in:      bufio.NewScanner(in),
		out:     NewPrinter(out),
		logger:  logger,
	}
}

// Run shows the menu until the user exits or input ends. Errors from the
// backend other than server messages end the session and are returned.
func (m *Menu) Run() error {
	for {
		m.out.Title("\nCustomer DB Menu")
		for _, item := range menuItems {
			m.out.Line(item)
		}

		choice, ok := m.read("Select: ")
		if !ok {
			return nil
		}

		var err error
		switch protocol.Choice(choice) {
		case protocol.ChoiceFind:
			err = m.find()
		case protocol.ChoiceAdd:
			err = m.add()
		case protocol.ChoiceDelete:
			err = m.nameOnly(m.backend.Delete)
		case protocol.ChoiceUpdateAge:
			err = m.update(labelAge, client.ValidateAge, m.backend.UpdateAge)
		case protocol.ChoiceUpdateAddress:
			err = m.update(labelAddress, nil, m.backend.UpdateAddress)
		case protocol.ChoiceUpdatePhone:
			err = m.update(labelPhone, client.ValidatePhone, m.backend.UpdatePhone)
		case protocol.ChoiceList:
			err = m.list()
		case protocol.ChoiceExit:
			m.out.Message("GoodBye")
			return nil
		default:
			m.out.Failure("Select valid option")
			continue
		}

		switch {
		case err == nil, errors.Is(err, errCancelled):
		case errors.Is(err, errInputClosed):
			return nil
		default:
			m.logger.Debug("Operation failed", zap.String("choice", choice), zap.Error(err))
			if !m.report(err) {
				return err
			}
		}
	}
}

// read prompts with label and returns the trimmed answer. ok is false at
// end of input.
func (m *Menu) read(label string) (string, bool) {
	m.out.Prompt(label)
	if !m.in.Scan() {
		m.out.Line("")
		return "", false
	}
	return strings.TrimSpace(m.in.Text()), true
}

// ask prompts for a customer field until validate accepts it or the user
// chooses to exit from the re-enter menu.
func (m *Menu) ask(label string, validate func(string) error) (string, error) {
	for {
		value, ok := m.read("Enter customer " + label + " : ")
		if !ok {
			return "", errInputClosed
		}
		if validate == nil {
			return value, nil
		}
		err := validate(value)
		if err == nil {
			return value, nil
		}

		m.out.Failure(err.Error())
		m.out.Line("1. Do you want to Re-enter")
		m.out.Line("2. Exit")
		again, ok := m.read("Select: ")
		if !ok {
			return "", errInputClosed
		}
		if again == "2" {
			return "", errCancelled
		}
	}
}

func (m *Menu) find() error {
	name, err := m.ask(labelName, client.ValidateName)
	if err != nil {
		return err
	}
	rec, err := m.backend.Find(name)
	if err != nil {
		return err
	}
	m.out.Records([]store.Record{rec})
	return nil
}

func (m *Menu) add() error {
	name, err := m.ask(labelName, client.ValidateName)
	if err != nil {
		return err
	}
	age, err := m.ask(labelAge, client.ValidateAge)
	if err != nil {
		return err
	}
	address, err := m.ask(labelAddress, nil)
	if err != nil {
		return err
	}
	phone, err := m.ask(labelPhone, client.ValidatePhone)
	if err != nil {
		return err
	}

	msg, err := m.backend.Add(store.Record{Name: name, Age: store.Age(age), Address: address, Phone: phone})
	if err != nil {
		return err
	}
	m.out.Success(msg)
	return nil
}

func (m *Menu) nameOnly(op func(name string) (string, error)) error {
	name, err := m.ask(labelName, client.ValidateName)
	if err != nil {
		return err
	}
	msg, err := op(name)
	if err != nil {
		return err
	}
	m.out.Success(msg)
	return nil
}

func (m *Menu) update(label string, validate func(string) error, op func(name, value string) (string, error)) error {
	name, err := m.ask(labelName, client.ValidateName)
	if err != nil {
		return err
	}
	value, err := m.ask(label, validate)
	if err != nil {
		return err
	}
	msg, err := op(name, value)
	if err != nil {
		return err
	}
	m.out.Success(msg)
	return nil
}

func (m *Menu) list() error {
	recs, err := m.backend.List()
	if err != nil {
		return err
	}
	m.out.Records(recs)
	return nil
}

// report prints server and validation messages. It returns false for any
// other error.
func (m *Menu) report(err error) bool {
	var se *client.ServerError
	if errors.As(err, &se) {
		m.out.Failure(se.Message)
		return true
	}
	var ve *client.ValidationError
	if errors.As(err, &ve) {
		m.out.Failure(ve.Message)
		return true
	}
	return false
}
