package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/tr4cks/firmod/controller"
	"github.com/tr4cks/firmod/modules"
)

const discordOperationTimeout = 5 * time.Second

type DiscordBot struct {
	config     *DiscordBotConfig
	controller *controller.Controller

	logger             zerolog.Logger
	session            *discordgo.Session
	registeredCommands []*discordgo.ApplicationCommand
}

type DiscordBotConfig struct {
	BotToken string `yaml:"bot-token" toml:"bot-token" validate:"required"`
	GuildId  string `yaml:"guild-id" toml:"guild-id"`
}

func (d *DiscordBot) Start() error {
	err := d.session.Open()
	if err != nil {
		return fmt.Errorf("cannot open the session: %w", err)
	}

	d.logger.Info().Msg("Adding commands...")
	registeredCommands := make([]*discordgo.ApplicationCommand, 0, len(commands))
	for _, v := range commands {
		cmd, err := d.session.ApplicationCommandCreate(d.session.State.User.ID, d.config.GuildId, v)
		if err != nil {
			d.registeredCommands = registeredCommands
			return fmt.Errorf("cannot create %q command: %w", v.Name, err)
		}
		registeredCommands = append(registeredCommands, cmd)
	}
	d.registeredCommands = registeredCommands

	return nil
}

func (d *DiscordBot) Stop() {
	d.logger.Info().Msg("Removing commands...")

	for _, v := range d.registeredCommands {
		err := d.session.ApplicationCommandDelete(d.session.State.User.ID, d.config.GuildId, v.ID)
		if err != nil {
			d.logger.Error().Err(err).Str("command", v.Name).Msg("Cannot delete command")
		}
	}

	err := d.session.Close()
	if err != nil {
		d.logger.Error().Err(err).Msg("Unable to close the session")
	}

	d.logger.Info().Msg("Gracefully shutting down")
}

func (d *DiscordBot) respond(s *discordgo.Session, i *discordgo.InteractionCreate, logger zerolog.Logger, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags:   discordgo.MessageFlagsEphemeral,
			Content: content,
		},
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to send interaction response")
	}
}

func (d *DiscordBot) interactionLogger(i *discordgo.InteractionCreate) zerolog.Logger {
	username := "unknown"
	if i.Member != nil && i.Member.User != nil {
		username = i.Member.User.Username
	} else if i.User != nil {
		username = i.User.Username
	}
	return d.logger.With().Str("username", username).Logger()
}

func (d *DiscordBot) moduleStatusHandler(s *discordgo.Session, i *discordgo.InteractionCreate) {
	logger := d.interactionLogger(i)
	logger.Info().Msg("A user checks the module status")

	ctx, cancel := context.WithTimeout(context.Background(), discordOperationTimeout)
	defer cancel()

	state := d.controller.State(ctx)
	if state.Err != nil {
		logger.Error().Err(state.Err).Msg("Failed to retrieve module state")
		d.respond(s, i, logger, "❌ Oops! Something went wrong while reading the module")
		return
	}
	d.respond(s, i, logger, stateMessage(state.Value))
}

func (d *DiscordBot) moduleInitHandler(s *discordgo.Session, i *discordgo.InteractionCreate) {
	logger := d.interactionLogger(i)
	logger.Info().Msg("A user resets the module")

	ctx, cancel := context.WithTimeout(context.Background(), discordOperationTimeout)
	defer cancel()

	state, err := d.controller.Init(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("A problem occurred when initializing the module")
		d.respond(s, i, logger, "❌ Oops! Something went wrong while resetting the module")
		return
	}
	logger.Info().Msg("Module initialized")
	d.respond(s, i, logger, "🔄 Module reset. "+stateMessage(state))
}

func (d *DiscordBot) moduleUpdateHandler(s *discordgo.Session, i *discordgo.InteractionCreate) {
	logger := d.interactionLogger(i)
	logger.Info().Msg("A user notifies a module update")

	ctx, cancel := context.WithTimeout(context.Background(), discordOperationTimeout)
	defer cancel()

	state, err := d.controller.Update(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("A problem occurred when notifying the module")
		d.respond(s, i, logger, "❌ Oops! Something went wrong while notifying the module")
		return
	}
	d.respond(s, i, logger, "📨 Update delivered. "+stateMessage(state))
}

func stateMessage(state controller.State) string {
	var icon string
	switch state.Status {
	case modules.StatusActive:
		icon = "🟢"
	case modules.StatusError:
		icon = "🔴"
	default:
		icon = "💤"
	}
	message := fmt.Sprintf("%s Module status: %s", icon, state.Status)
	if state.Status != modules.StatusActive || state.Parameters == nil {
		return message
	}
	parameters, err := json.Marshal(state.Parameters)
	if err != nil {
		return message
	}
	return fmt.Sprintf("%s with parameters `%s`", message, parameters)
}

var commands = []*discordgo.ApplicationCommand{
	{
		Name:        "module_status",
		Description: "Provides the current status of the module",
	},
	{
		Name:        "module_update",
		Description: "Notifies the module that its data was updated",
	},
	{
		Name:        "module_init",
		Description: "Resets the module to its idle state",
		DefaultMemberPermissions: func() *int64 {
			perms := int64(discordgo.PermissionAdministrator)
			return &perms
		}(),
	},
}

func NewDiscordBot(config *DiscordBotConfig, ctrl *controller.Controller) (*DiscordBot, error) {
	logger := newLogger("discord")

	session, err := discordgo.New("Bot " + config.BotToken)
	if err != nil {
		return nil, fmt.Errorf("invalid bot parameters: %w", err)
	}

	bot := &DiscordBot{config, ctrl, logger, session, nil}

	commandHandlers := map[string]func(*discordgo.Session, *discordgo.InteractionCreate){
		"module_status": bot.moduleStatusHandler,
		"module_update": bot.moduleUpdateHandler,
		"module_init":   bot.moduleInitHandler,
	}

	session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		if h, ok := commandHandlers[i.ApplicationCommandData().Name]; ok {
			h(s, i)
		}
	})

	session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		logger.Info().
			Str("discriminator", s.State.User.Discriminator).
			Str("username", s.State.User.Username).
			Msg(fmt.Sprintf("Logged in as: %v#%v", s.State.User.Username, s.State.User.Discriminator))
	})

	return bot, nil
}
