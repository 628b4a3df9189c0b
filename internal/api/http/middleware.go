package http

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/gearguard/internal/observability"
	"github.com/spec-kit/gearguard/pkg/util"
)

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorHandlingMiddleware(logger, metrics))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = util.NewInternalError(nil)
			}
			if err != nil {
				domainErr := toDomainError(err)
				if metrics != nil {
					metrics.RecordError(c.Path(), c.Method(), domainErr.Code)
				}
				if domainErr.HTTPStatus >= 500 {
					logger.Error("request failed",
						zap.String("path", c.Path()),
						zap.String("method", c.Method()),
						zap.Error(domainErr))
				}
				c.Status(domainErr.HTTPStatus)
				_ = c.JSON(ErrorBody(domainErr))
				err = nil
			}
		}()
		return c.Next()
	}
}

// ErrorBody renders the error envelope. The top-level message mirrors
// error.message for clients that only read {message}.
func ErrorBody(domainErr *util.DomainError) fiber.Map {
	inner := fiber.Map{
		"code":    domainErr.Code,
		"message": domainErr.Message,
	}
	if len(domainErr.Details) > 0 {
		inner["details"] = domainErr.Details
	}
	return fiber.Map{"error": inner, "message": domainErr.Message}
}

// toDomainError also maps fiber's own errors (unknown route, bad method,
// oversized body) to the envelope.
func toDomainError(err error) *util.DomainError {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := util.CodeValidation
		switch {
		case fe.Code == fiber.StatusNotFound:
			code = util.CodeNotFound
		case fe.Code == fiber.StatusMethodNotAllowed:
			code = "METHOD_NOT_ALLOWED"
		case fe.Code >= 500:
			code = util.CodeInternal
		}
		return util.NewDomainError(code, fe.Message, fe.Code, nil)
	}
	return util.ToDomainError(err)
}

// FallbackErrorHandler is installed as fiber's ErrorHandler for errors that
// escape the middleware chain.
func FallbackErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		domainErr := toDomainError(err)
		if domainErr.HTTPStatus >= 500 {
			logger.Error("unhandled error", zap.Error(err))
		}
		return c.Status(domainErr.HTTPStatus).JSON(ErrorBody(domainErr))
	}
}
