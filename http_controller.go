package frummy

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {

	controller := NewAuthController(opts...)

	app.
		Get(controller.Routes.Login,
			controller.LoginShow,
		).
		SetName("sign-in.get")

	app.
		Post(
			controller.Routes.Login,
			controller.LoginPost,
		).
		SetName("sign-in.post")

	app.Get(controller.Routes.Logout, controller.LogOut).SetName("sign-out.get")

	app.Get(controller.Routes.Register, controller.RegistrationShow).
		SetName("register.get")
	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("register.post")

	app.Get(controller.Routes.Recover, controller.RecoverShow).
		SetName("recover.get")
	app.Post(controller.Routes.Recover, controller.RecoverPost).
		SetName("recover.post")
}

type AuthControllerRoutes struct {
	Login    string
	Logout   string
	Register string
	Recover  string
}

type AuthControllerViews struct {
	Login    string
	Register string
	Recover  string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Identity     IdentityService
	Sessions     *RouteSessions
	Routes       *AuthControllerRoutes
	Views        *AuthControllerViews
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerIdentity(identity IdentityService) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Identity = identity
		return c
	}
}

func WithControllerSessions(sessions *RouteSessions) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Sessions = sessions
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &AuthControllerRoutes{
			Login:    "/auth/login",
			Logout:   "/auth/logout",
			Register: "/auth/register",
			Recover:  "/auth/recover",
		},
		Views: &AuthControllerViews{
			Login:    "auth/login",
			Register: "auth/register",
			Recover:  "auth/recover",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Identity == nil {
		panic("Missing IdentityService in auth controller...")
	}

	if c.Sessions == nil {
		panic("Missing RouteSessions in auth controller...")
	}

	return c
}

func (a *AuthController) LoginShow(ctx router.Context) error {
	return ctx.Render(a.Views.Login, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)
	errs := map[string]string{}

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		a.Logger.Debug("login attempt: ", "payload", print.MaybePrettyJSON(payload))
	}

	session, err := a.Identity.SignIn(ctx.Context(), Credentials{
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		if IsInvalidGrantError(err) {
			errs["authentication"] = "Invalid email or password"
		} else {
			a.Logger.Error("login identity error: ", "error", err)
			errs["authentication"] = "Authentication Error"
		}
		return ctx.Render(a.Views.Login, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	// some backends answer 200 without token material, e.g. when the
	// address still needs confirmation; there is nothing to establish
	if session == nil {
		a.Logger.Error("login returned no session: ", "email", payload.Email)
		errs["authentication"] = "Authentication Error"
		return ctx.Render(a.Views.Login, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	if err := a.Sessions.Establish(ctx, session); err != nil {
		a.Logger.Error("login establish session: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	redirect := a.Sessions.GetRedirect(ctx, "/app")

	return ctx.Redirect(redirect, router.StatusSeeOther)
}

// LogOut revokes the identity session and always clears the local one. A
// backend that refuses the revocation must not trap the browser signed in.
func (a *AuthController) LogOut(ctx router.Context) error {
	session, _ := a.Sessions.Resolve(ctx)

	if session.Valid() {
		if err := a.Identity.SignOut(ctx.Context(), session.AccessToken); err != nil {
			a.Logger.Warn("sign out revocation failed: ", "error", err)
		}
	}

	if err := a.Sessions.Destroy(ctx); err != nil {
		a.Logger.Error("sign out destroy session: ", "error", err)
	}

	return ctx.Redirect("/", router.StatusTemporaryRedirect)
}

func (a *AuthController) RegistrationShow(ctx router.Context) error {
	return ctx.Render(a.Views.Register, router.ViewContext{
		"errors": map[string]string{},
		"record": RegistrationCreatePayload{},
	})
}

// RegistrationCreatePayload is the form payload
type RegistrationCreatePayload struct {
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {

	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(8, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		errs := map[string]string{}
		errs["form"] = "Failed to parse form"
		a.Logger.Error("register user parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Register, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		errs := FormatValidationErrorToMap(err)
		a.Logger.Error("register user validate payload: ", "error", err)

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.Register, router.ViewContext{
			"record":     payload,
			"validation": errs,
		})
	}

	session, err := a.Identity.SignUp(ctx.Context(), Credentials{
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		a.Logger.Error("register identity error: ", "error", err)

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error creating account",
		}).Render(a.Views.Register, router.ViewContext{
			"record": payload,
			"errors": []string{err.Error()},
		})
	}

	// nil session without error means the backend wants the address
	// confirmed before it will mint tokens
	if session == nil {
		return flash.WithSuccess(ctx, router.ViewContext{
			"system_message": "Check your email to confirm your account",
		}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
	}

	if err := a.Sessions.Establish(ctx, session); err != nil {
		a.Logger.Error("register establish session: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Welcome aboard",
	}).Redirect("/app", fiber.StatusSeeOther)
}

func (a *AuthController) RecoverShow(ctx router.Context) error {
	return ctx.Render(a.Views.Recover, router.ViewContext{
		"errors": nil,
		"record": RecoverRequestPayload{},
	})
}

// RecoverRequestPayload holds values for password recovery
type RecoverRequestPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will validate the payload
func (r RecoverRequestPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
	)
}

func (a *AuthController) RecoverPost(ctx router.Context) error {
	payload := new(RecoverRequestPayload)

	if err := ctx.Bind(payload); err != nil {
		errs := map[string]string{}
		errs["form"] = "Failed to parse form"
		a.Logger.Error("recover parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Recover, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("recover validate payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.Recover, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	// Always land on the same message so the form does not leak which
	// addresses have accounts.
	if err := a.Identity.Recover(ctx.Context(), payload.Email); err != nil {
		a.Logger.Error("recover identity error: ", "error", err)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "If that address has an account, a recovery email is on its way",
	}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
}

func defaultErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
