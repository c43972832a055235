package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/brendan.keane/svcbase/internal/config"
	"github.com/brendan.keane/svcbase/internal/errors"
	"github.com/brendan.keane/svcbase/pkg/openapi"
)

// ActionsHandler handles the actions command
type ActionsHandler struct {
	logger zerolog.Logger
}

// NewActionsHandler creates a new actions command handler
func NewActionsHandler(logger zerolog.Logger) *ActionsHandler {
	return &ActionsHandler{
		logger: logger.With().Str("handler", "actions").Logger(),
	}
}

// Execute lists the controller's actions, or describes one when an action
// name is given.
func (h *ActionsHandler) Execute(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(commandContext(cmd), commandTimeout)
	defer cancel()

	catalog, err := loadCatalog(ctx, h.logger, cfg)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load OpenAPI document")
		return err
	}

	controller := cfg.Controller
	if cfg.Service != "" {
		if provider, err := cfg.Provider(); err == nil {
			controller = provider.Option().Controller
		}
	}

	actions, err := catalog.Actions(controller)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), catalog.Render(controller, actions))
		return nil
	}

	name := strings.Trim(args[0], "/")
	found := false
	for _, a := range actions {
		if a.Name == name {
			fmt.Fprintln(cmd.OutOrStdout(), openapi.RenderAction(a))
			found = true
		}
	}
	if !found {
		return errors.New(errors.ErrorTypeOpenAPI, "action not found").
			WithContext("action", name).
			WithContext("controller", controller)
	}
	return nil
}

// ActionCompletion completes action names for method from the OpenAPI
// document. Failures complete nothing.
func ActionCompletion(method string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		cfg, err := config.LoadFromFlags(cmd.Flags())
		if err != nil || cfg.OpenAPI == "" {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		catalog, err := loadCatalog(ctx, zerolog.Nop(), cfg)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		controller := cfg.Controller
		if provider, err := cfg.Provider(); err == nil {
			controller = provider.Option().Controller
		}
		return catalog.ActionNames(controller, method, toComplete), cobra.ShellCompDirectiveNoFileComp
	}
}
