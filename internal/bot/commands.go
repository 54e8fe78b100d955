package bot

import "github.com/bwmarrin/discordgo"

const urlOption = "url"

// Commands returns the slash commands served by DisBot.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        string(PLAY),
			Description: "Add a YouTube URL to the queue and play",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        urlOption,
					Description: "YouTube video URL",
					Required:    true,
				},
			},
		},
		{Name: string(SKIP), Description: "Skip the current song"},
		{Name: string(QUEUE), Description: "Show the next songs in the queue"},
		{Name: string(STOP), Description: "Stop and disconnect"},
	}
}

func optionString(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, opt := range opts {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionString {
			return opt.StringValue()
		}
	}
	return ""
}
