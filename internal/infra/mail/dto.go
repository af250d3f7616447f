package mail

type NotificationEmailData struct {
	Name    string
	Title   string
	Message string
	Link    string
}

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}
