package pipeline

// Host action IDs for structured commands, mapped to their text form.
const (
	CmdHelp               = "c2332078-d9cb-4cbc-80ce-21bb86330986"
	CmdClearChatHistory   = "8ac3c57a-d353-4bdb-8768-52eb15352a4a"
	CmdClearPromptHistory = "799c4402-33f3-425d-979f-0fd36e27a1aa"
	CmdVersion            = "e87f7481-9b19-4a5e-8b43-20516768393e"
	CmdSetNick            = "ccd7aa20-4a65-4467-ad34-4a50ff74e163"
	CmdRemoveNick         = "72a08e87-463b-4a3d-ae16-de5b8f51c18f"
	CmdCurrentNick        = "17b06f6a-2f25-4fd0-a0e6-48aacf5cc782"
	CmdSetPronouns        = "777782d6-9e97-4dae-9f86-dafaa58cafaa"
	CmdForget             = "23890ed1-131a-42bd-90f0-9d36c5b775b6"
	CmdGetMemory          = "23a7aa90-a1ad-464c-a6c4-861f73223084"
	CmdRememberThis       = "80f22f3f-0197-4347-b37f-b6993c86d68a"
	CmdForgetThis         = "66cdc4d3-c52d-4c31-b323-277f4d52c6a0"
	CmdAsk                = "6a23a150-93ce-4201-8db2-d2fd866f90d8"
	CmdSayPlay            = "6caffb4d-7a47-46cc-b7c2-084cd49127b6"
)

var commandNames = map[string]string{
	CmdHelp:               "!help",
	CmdClearChatHistory:   "!clearchathistory",
	CmdClearPromptHistory: "!clearprompthistory",
	CmdVersion:            "!version",
	CmdSetNick:            "!setnick",
	CmdRemoveNick:         "!removenick",
	CmdCurrentNick:        "!currentnick",
	CmdSetPronouns:        "!setpronouns",
	CmdForget:             "!forget",
	CmdGetMemory:          "!getmemory",
	CmdRememberThis:       "!rememberthis",
	CmdForgetThis:         "!forgetthis",
	CmdAsk:                "!?",
	CmdSayPlay:            "!sayplay",
}

// CommandName returns the text form of a structured command ID.
func CommandName(id string) (string, bool) {
	n, ok := commandNames[id]
	return n, ok
}
