package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/BradenHooton/alumni-onboard/internal/dashboard"
	"github.com/BradenHooton/alumni-onboard/internal/flow"
	"github.com/BradenHooton/alumni-onboard/internal/models"
)

var errQuit = errors.New("quit")

// console drives a flow.Controller from line-oriented input.
type console struct {
	lines <-chan string
	out   io.Writer

	mu   sync.Mutex
	ctrl *flow.Controller
}

func newConsole(in io.Reader, out io.Writer) *console {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
	}()
	return &console{lines: lines, out: out}
}

// Navigate prints the banner of every step entered after Run starts.
func (c *console) Navigate(dest models.Destination) {
	c.mu.Lock()
	ctrl := c.ctrl
	c.mu.Unlock()
	if ctrl != nil {
		c.banner(ctrl, dest)
	}
}

func (c *console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// Run reads commands until input ends, ctx is cancelled or the user quits.
func (c *console) Run(ctx context.Context, ctrl *flow.Controller) error {
	c.mu.Lock()
	c.ctrl = ctrl
	c.mu.Unlock()

	c.banner(ctrl, ctrl.Current())
	for {
		c.printf("> ")
		line, ok := c.readLine(ctx)
		if !ok {
			return nil
		}
		if line == "" {
			continue
		}
		err := c.dispatch(ctx, ctrl, strings.Fields(line))
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			c.printf("! %s\n", err)
		}
	}
}

func (c *console) readLine(ctx context.Context) (string, bool) {
	select {
	case <-ctx.Done():
		return "", false
	case line, ok := <-c.lines:
		return line, ok
	}
}

func (c *console) prompt(ctx context.Context, label string) (string, error) {
	c.printf("%s: ", label)
	line, ok := c.readLine(ctx)
	if !ok {
		return "", errQuit
	}
	return line, nil
}

func (c *console) dispatch(ctx context.Context, ctrl *flow.Controller, args []string) error {
	switch args[0] {
	case "quit", "exit":
		return errQuit
	case "help":
		c.help(ctrl.Current())
		return nil
	case "back":
		return ctrl.Back()
	}

	cur := ctrl.Current()
	switch cur.Step {
	case models.StepLanding:
		switch args[0] {
		case "login":
			return ctrl.ChooseLogin()
		case "signup":
			return ctrl.ChooseSignup()
		}
	case models.StepAuth:
		switch args[0] {
		case "switch":
			return ctrl.SwitchAuthMode()
		case "submit":
			return c.submitAuth(ctx, ctrl, cur.Mode)
		}
	case models.StepOTP:
		return c.otpCommand(ctx, ctrl, args)
	case models.StepEmailVerification:
		return c.emailCommand(ctx, ctrl, args)
	case models.StepPinSetup:
		if args[0] == "pin" {
			return c.setPIN(ctx, ctrl, args[1:])
		}
	case models.StepPermissions:
		return c.permissionCommand(ctx, ctrl, args)
	case models.StepJoin:
		if args[0] == "join" {
			return ctrl.Join(ctx)
		}
	case models.StepDashboard:
		if args[0] == "card" {
			c.banner(ctrl, cur)
			return nil
		}
	}
	return fmt.Errorf("unknown command %q on %s (try help)", args[0], cur.Step)
}

func (c *console) submitAuth(ctx context.Context, ctrl *flow.Controller, mode models.AuthMode) error {
	var form models.AuthForm
	fields := []struct {
		label string
		dst   *string
	}{
		{"Email", &form.Email},
		{"Phone number", &form.PhoneNumber},
		{"Password", &form.Password},
	}
	if mode == models.AuthModeSignup {
		fields = append([]struct {
			label string
			dst   *string
		}{
			{"First name", &form.FirstName},
			{"Last name", &form.LastName},
		}, fields...)
		fields = append(fields, struct {
			label string
			dst   *string
		}{"Confirm password", &form.ConfirmPassword})
	}

	for _, f := range fields {
		v, err := c.prompt(ctx, f.label)
		if err != nil {
			return err
		}
		*f.dst = v
	}

	c.printf("submitting...\n")
	return ctrl.SubmitAuth(ctx, form)
}

func (c *console) otpCommand(ctx context.Context, ctrl *flow.Controller, args []string) error {
	step, err := ctrl.OTP()
	if err != nil {
		return err
	}

	switch args[0] {
	case "resend":
		if err := step.Resend(ctx); err != nil {
			return err
		}
		c.printf("a new code has been sent\n")
		return nil
	case "timer":
		st := step.State()
		if st.ResendAllowed {
			c.printf("you can request a new code\n")
		} else {
			c.printf("resend in %ds\n", st.SecondsRemaining)
		}
		return nil
	case "del":
		st := step.State()
		step.Backspace(st.Focus)
		c.printf("[%s]\n", slotString(step.State()))
		return nil
	}

	// Anything else is typed into the slots from the focused one on.
	st := step.State()
	index := st.Focus
	for _, r := range strings.Join(args, "") {
		if index >= models.OTPCodeLength {
			break
		}
		if err := step.EnterDigit(ctx, index, string(r)); err != nil {
			if errors.Is(err, models.ErrInvalidOTP) {
				c.printf("that code was not accepted, try again\n")
				return nil
			}
			return err
		}
		index++
	}
	if ctrl.Current().Step == models.StepOTP {
		c.printf("[%s]\n", slotString(step.State()))
	}
	return nil
}

func slotString(st models.OTPState) string {
	slots := make([]string, models.OTPCodeLength)
	for i, d := range st.Digits {
		if d == "" {
			d = "_"
		}
		slots[i] = d
	}
	return strings.Join(slots, " ")
}

func (c *console) emailCommand(ctx context.Context, ctrl *flow.Controller, args []string) error {
	step, err := ctrl.Email()
	if err != nil {
		return err
	}

	switch args[0] {
	case "check":
		if !step.EmailSent() {
			select {
			case <-step.SentC():
			case sendErr := <-step.InitialSend():
				if sendErr != nil {
					return sendErr
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		err := step.Check(ctx)
		if errors.Is(err, models.ErrNotYetVerified) {
			c.printf("not verified yet. Open the link we sent to %s\n", step.MaskedEmail())
			return nil
		}
		return err
	case "resend":
		if err := step.Resend(ctx); err != nil {
			return err
		}
		c.printf("verification email sent to %s\n", step.MaskedEmail())
		return nil
	}
	return fmt.Errorf("unknown command %q on email verification (try help)", args[0])
}

func (c *console) setPIN(ctx context.Context, ctrl *flow.Controller, args []string) error {
	var pin, confirm string
	if len(args) == 2 {
		pin, confirm = args[0], args[1]
	} else {
		var err error
		if pin, err = c.prompt(ctx, "PIN"); err != nil {
			return err
		}
		if confirm, err = c.prompt(ctx, "Confirm PIN"); err != nil {
			return err
		}
	}
	return ctrl.CompletePINSetup(ctx, pin, confirm)
}

func (c *console) permissionCommand(ctx context.Context, ctrl *flow.Controller, args []string) error {
	perms, err := ctrl.Permissions()
	if err != nil {
		return err
	}

	switch args[0] {
	case "list":
		c.listPermissions(perms.Records())
		return nil
	case "grant":
		if len(args) < 2 || args[1] == "all" {
			err = perms.RequestAll(ctx)
		} else {
			err = perms.RequestOne(ctx, models.PermissionID(args[1]))
		}
		c.listPermissions(perms.Records())
		return err
	case "continue":
		return ctrl.ContinueFromPermissions()
	}
	return fmt.Errorf("unknown command %q on permissions (try help)", args[0])
}

func (c *console) listPermissions(records []models.PermissionRecord) {
	for _, r := range records {
		c.printf("  %-10s %s\n", r.ID, r.Status)
	}
}

func (c *console) banner(ctrl *flow.Controller, dest models.Destination) {
	switch dest.Step {
	case models.StepLanding:
		c.printf("\nWelcome to the Alumni Network.\n")
	case models.StepAuth:
		c.printf("\n-- %s --\n", dest.Mode)
	case models.StepOTP:
		c.printf("\n-- verify your phone --\nEnter the 6-digit code sent to %s\n", dest.Params.PhoneNumber)
	case models.StepEmailVerification:
		c.printf("\n-- verify your email --\n")
	case models.StepPinSetup:
		c.printf("\n-- choose a 4-digit PIN --\n")
	case models.StepPermissions:
		c.printf("\n-- permissions --\n")
		c.listPermissions(pendingCatalog())
	case models.StepJoin:
		c.printf("\n-- join the network --\n")
	case models.StepDashboard:
		c.printf("\n-- dashboard --\n")
		card, err := dashboard.NewMemberCard(ctrl.Facts(), dest.Params)
		if err != nil {
			c.printf("Welcome back.\n")
			break
		}
		c.printf("%s", card.Terminal())
	}
	c.help(dest)
}

func pendingCatalog() []models.PermissionRecord {
	records := make([]models.PermissionRecord, len(models.PermissionCatalog))
	for i, id := range models.PermissionCatalog {
		records[i] = models.PermissionRecord{ID: id}
	}
	return records
}

func (c *console) help(dest models.Destination) {
	var cmds string
	switch dest.Step {
	case models.StepLanding:
		cmds = "login | signup"
	case models.StepAuth:
		cmds = "submit | switch | back"
	case models.StepOTP:
		cmds = "<digits> | del | resend | timer | back"
	case models.StepEmailVerification:
		cmds = "check | resend | back"
	case models.StepPinSetup:
		cmds = "pin [<pin> <confirm>]"
	case models.StepPermissions:
		cmds = "grant [all|<permission>] | list | continue"
	case models.StepJoin:
		cmds = "join"
	case models.StepDashboard:
		cmds = "card"
	}
	c.printf("commands: %s | quit\n", cmds)
}
