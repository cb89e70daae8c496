package at

const (
	// Terminal Control
	CRLF = "\r\n"

	// Response Codes
	OK         = "OK"
	ERROR      = "ERROR"
	NoCarrier  = "NO CARRIER"
	NoDialtone = "NO DIALTONE"
	Busy       = "BUSY"
	CmeError   = "+CME ERROR:"

	// URCs (Unsolicited Result Codes)
	UrcHTTPAction = "+HTTPACTION:"
	UrcNetOpen    = "+NETOPEN:"
	UrcPDPDeact   = "+PDP: DEACT"

	// Bring-up commands
	CmdAT           = "AT"
	CmdEchoOff      = "ATE0"
	CmdSimStatus    = "AT+CPIN?"
	CmdRegistration = "AT+CREG?"
	CmdSignal       = "AT+CSQ"
	CmdAttach       = "AT+CGATT=1"
	CmdNetOpen      = "AT+NETOPEN"

	// HTTP session commands
	CmdHTTPTerm   = "AT+HTTPTERM"
	CmdHTTPInit   = "AT+HTTPINIT"
	CmdHTTPSetCID = `AT+HTTPPARA="CID",1`
	CmdHTTPAction = "AT+HTTPACTION=0"
)

// Parameterized command formats, filled in with fmt.Sprintf.
const (
	FmtSetAPN     = `AT+CGDCONT=1,"IP",%q`
	FmtHTTPSetURL = `AT+HTTPPARA="URL",%q`
)

type ResponseType int

const (
	TypeFinal ResponseType = iota // OK, ERROR
	TypeURC                       // Asynchronous notifications
	TypeData                      // Intermediate command output (+CSQ: ...)
)
