package types

import "time"

// Config represents one report configuration file.
type Config struct {
	// Meta information for the configuration
	Meta struct {
		ID          string `yaml:"id"`
		Name        string `yaml:"name"`
		Description string `yaml:"description,omitempty"`
		Enabled     bool   `yaml:"enabled"`
		Template    string `yaml:"template,omitempty"` // Name of the template to use
	} `yaml:"meta"`

	Mailbox struct {
		Protocol       string   `yaml:"protocol"` // imap, pop3 or mbox
		Account        string   `yaml:"account"`  // matched against From/To when pairing
		Username       string   `yaml:"username"`
		Password       string   `yaml:"password"`
		DefaultTimeout int      `yaml:"default_timeout"` // seconds
		MaxConcurrent  int      `yaml:"max_concurrent"`
		Folders        []string `yaml:"folders"`
		Protocols      struct {
			IMAP struct {
				Server               string   `yaml:"server"`
				Port                 int      `yaml:"port"`
				BatchSize            int      `yaml:"batch_size"`
				Inbox                string   `yaml:"inbox"`
				SentFolderCandidates []string `yaml:"sent_folder_candidates"`
				DefaultSentFolder    string   `yaml:"default_sent_folder"`
			} `yaml:"imap"`
			POP3 struct {
				Server string `yaml:"server"`
				Port   int    `yaml:"port"`
			} `yaml:"pop3"`
			Mbox struct {
				// Files maps a logical folder name to an mbox file.
				Files      map[string]string `yaml:"files"`
				SentFolder string            `yaml:"sent_folder"`
			} `yaml:"mbox"`
		} `yaml:"protocols"`
		Security struct {
			TLS struct {
				Enabled    bool   `yaml:"enabled"`
				MinVersion string `yaml:"min_version"`
				VerifyCert bool   `yaml:"verify_cert"`
			} `yaml:"tls"`
			OAuth2 struct {
				Enabled      bool   `yaml:"enabled"`
				Provider     string `yaml:"provider"` // google, microsoft
				ClientID     string `yaml:"client_id"`
				ClientSecret string `yaml:"client_secret"`
				RedirectURL  string `yaml:"redirect_url"`
				TokenDir     string `yaml:"token_dir"`
			} `yaml:"oauth2"`
		} `yaml:"security"`
		Keyring struct {
			Enabled bool   `yaml:"enabled"`
			Service string `yaml:"service"`
			FileDir string `yaml:"file_dir"`
		} `yaml:"keyring"`
	} `yaml:"mailbox"`

	Report struct {
		// Keywords left unset fall back to the built-in phrases; an explicit
		// empty list disables the keyword stage.
		Keywords         []string `yaml:"keywords"`
		IdentifierLength *int     `yaml:"identifier_length"`
		Strict           *bool    `yaml:"strict"`
		MaxTextLength    int      `yaml:"max_text_length"`
		Pairing          struct {
			Strategy      string        `yaml:"strategy"` // auto, primary, extended
			SubjectMaxGap time.Duration `yaml:"subject_max_gap"`
		} `yaml:"pairing"`
		TimeWindow struct {
			EarliestHour    *int   `yaml:"earliest_hour"`
			Granularity     int    `yaml:"granularity"`
			DurationMinutes int    `yaml:"duration_minutes"`
			Timezone        string `yaml:"timezone"`
		} `yaml:"time_window"`
		ConsultationType string `yaml:"consultation_type"`
		Location         string `yaml:"location"`
		Visibility       string `yaml:"visibility"`
		Format           string `yaml:"format"` // xlsx or csv
		NamingPattern    string `yaml:"naming_pattern"`
		Storage          struct {
			Type              string `yaml:"type"` // file or gdrive
			Path              string `yaml:"path"`
			CredentialsFile   string `yaml:"credentials_file"`
			ParentFolder      string `yaml:"parent_folder"`
			PreserveStructure bool   `yaml:"preserve_structure"`
		} `yaml:"storage"`
	} `yaml:"report"`

	Cache struct {
		Enabled       bool   `yaml:"enabled"`
		StorageType   string `yaml:"storage_type"` // sqlite or file
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"cache"`

	ErrorLogging struct {
		Enabled       bool   `yaml:"enabled"`
		StoragePath   string `yaml:"storage_path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"error_logging"`

	Logging struct {
		Level         string `yaml:"level"`
		Format        string `yaml:"format"` // text, json or dev
		IncludeCaller bool   `yaml:"include_caller"`
	} `yaml:"logging"`

	Scheduling struct {
		Enabled         bool   `yaml:"enabled"`
		FrequencyEvery  string `yaml:"frequency_every"` // minute, hour, day, week, month
		FrequencyAmount int    `yaml:"frequency_amount"`
		StartNow        bool   `yaml:"start_now"`
		StartAt         string `yaml:"start_at"` // UTC DateTime
		StopAt          string `yaml:"stop_at"`  // UTC DateTime
		WindowDays      int    `yaml:"window_days"`
	} `yaml:"scheduling"`
}
