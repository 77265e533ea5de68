package pwrcli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/oremus-labs/ol-power-client/internal/guard"
	"github.com/oremus-labs/ol-power-client/internal/powerapi"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with username and password",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := currentSession(cmd)
		if err != nil {
			return err
		}
		force, _ := cmd.Flags().GetBool("force")
		decision := guard.Decide(guard.RouteLogin, s.creds.IsAuthenticated(cmd.Context()))
		if decision.Redirected && !force {
			sess, _ := s.creds.Session(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "Already logged in as %s. Use --force to log in again.\n", sess.Username)
			return nil
		}

		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			password, err = readLine(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ")
			if err != nil {
				return err
			}
		}
		remember, _ := cmd.Flags().GetBool("remember")
		res, err := s.client.Login(cmd.Context(), powerapi.LoginRequest{Username: username, Password: password, RememberMe: remember})
		if err != nil {
			return err
		}
		return printLogin(cmd, res)
	},
}

var faceLoginCmd = &cobra.Command{
	Use:   "face-login",
	Short: "Log in with captured face data",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := currentSession(cmd)
		if err != nil {
			return err
		}
		faceData, err := faceDataFromFlags(cmd)
		if err != nil {
			return err
		}
		sessionID, _ := cmd.Flags().GetString("session-id")
		res, err := s.client.FaceLogin(cmd.Context(), powerapi.FaceLoginRequest{FaceData: faceData, SessionID: sessionID})
		if err != nil {
			return err
		}
		return printLogin(cmd, res)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := currentSession(cmd)
		if err != nil {
			return err
		}
		if err := s.client.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	},
}

type whoami struct {
	Username  string     `json:"username"`
	Role      string     `json:"role"`
	Subject   string     `json:"subject,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

var whoamiCmd = protected(&cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := currentSession(cmd)
		if err != nil {
			return err
		}
		sess, err := s.creds.Session(cmd.Context())
		if err != nil {
			return err
		}
		info := whoami{Username: sess.Username, Role: sess.Role}
		claims := jwt.MapClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(sess.Token, claims); err == nil {
			info.Subject, _ = claims.GetSubject()
			if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
				t := exp.Time
				info.ExpiresAt = &t
			}
		}
		return render(cmd.OutOrStdout(), info, func(tw *tabwriter.Writer) {
			fmt.Fprintf(tw, "Field\tValue\n")
			fmt.Fprintf(tw, "Username\t%s\n", orDash(info.Username))
			fmt.Fprintf(tw, "Role\t%s\n", orDash(info.Role))
			if info.ExpiresAt != nil {
				fmt.Fprintf(tw, "Expires\t%s\n", info.ExpiresAt.Local().Format(time.RFC3339))
			}
		})
	},
})

var registerFaceCmd = protected(&cobra.Command{
	Use:   "register-face <user-id|username>",
	Short: "Register face data for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := currentSession(cmd)
		if err != nil {
			return err
		}
		faceData, err := faceDataFromFlags(cmd)
		if err != nil {
			return err
		}
		ok, err := s.client.RegisterFace(cmd.Context(), args[0], faceData)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("face registration for %s was not accepted", args[0])
		}
		successColor.Fprintf(cmd.OutOrStdout(), "Face registered for %s.\n", args[0])
		return nil
	},
})

func printLogin(cmd *cobra.Command, res *powerapi.LoginResult) error {
	if outputFormat == "json" || outputFormat == "yaml" {
		return render(cmd.OutOrStdout(), res.User, nil)
	}
	successColor.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s).\n", res.User.Username, res.User.Role)
	return nil
}

// faceDataFromFlags reads --data verbatim or encodes --points "x,y;x,y".
func faceDataFromFlags(cmd *cobra.Command) (string, error) {
	data, _ := cmd.Flags().GetString("data")
	points, _ := cmd.Flags().GetString("points")
	if data != "" && points != "" {
		return "", fmt.Errorf("use either --data or --points")
	}
	if points == "" {
		return data, nil
	}
	parsed, err := parsePoints(points)
	if err != nil {
		return "", err
	}
	return powerapi.EncodeFacePoints(parsed)
}

func parsePoints(raw string) ([]powerapi.FacePoint, error) {
	var out []powerapi.FacePoint
	for _, pair := range strings.Split(raw, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		xs, ys, found := strings.Cut(pair, ",")
		if !found {
			return nil, fmt.Errorf("point %q must be x,y", pair)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
		if err != nil {
			return nil, fmt.Errorf("point %q: %w", pair, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
		if err != nil {
			return nil, fmt.Errorf("point %q: %w", pair, err)
		}
		out = append(out, powerapi.FacePoint{X: x, Y: y})
	}
	return out, nil
}

func readLine(in io.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func init() {
	loginCmd.Flags().StringP("username", "u", "", "Username")
	loginCmd.Flags().StringP("password", "p", "", "Password (prompted when empty)")
	loginCmd.Flags().Bool("remember", false, "Ask the backend for a long-lived session")
	loginCmd.Flags().Bool("force", false, "Log in even when a session exists")

	for _, cmd := range []*cobra.Command{faceLoginCmd, registerFaceCmd} {
		cmd.Flags().String("data", "", "Face data exactly as captured")
		cmd.Flags().String("points", "", "Face points as x,y;x,y")
	}
	faceLoginCmd.Flags().String("session-id", "", "Capture session identifier")
}
