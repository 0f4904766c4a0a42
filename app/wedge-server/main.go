package main

import (
	"context"
	_ "embed"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"wedge.io/wedge/app/wedge-server/handler"
	"wedge.io/wedge/app/wedge-server/sample"
	"wedge.io/wedge/lib/appcontext"
	"wedge.io/wedge/lib/auth"
	"wedge.io/wedge/lib/buildinfo"
	"wedge.io/wedge/lib/converter"
	"wedge.io/wedge/lib/db"
	"wedge.io/wedge/lib/dispatch"
	"wedge.io/wedge/lib/httpserver"
	"wedge.io/wedge/lib/httpserver/filters"
	"wedge.io/wedge/lib/lflag"
	"wedge.io/wedge/lib/logger"
	"wedge.io/wedge/lib/profile"
	"wedge.io/wedge/lib/resources"
	"wedge.io/wedge/lib/runtime/scheme"
	"wedge.io/wedge/lib/utils/procutil"
)

var (
	httpListenAddrs  = lflag.NewArrayString("httpListenAddr", "The address to listen on for HTTP requests")
	useProxyProtocol = lflag.NewArrayBool("httpListenAddr.useProxyProtocol", "Whether to use proxy protocol for connections accepted at the corresponding -httpListenAddr")
	contextPath      = flag.String("http.pathPrefix", "/api", "Path prefix of the REST API")
	applicationID    = flag.String("app.id", "wedge", "Application id; it is the issuer of the tokens")

	resourcesFile = flag.String("resources.file", "", "Path to the YAML resources file with messages, route mappings and users. "+
		"The file is re-read on SIGHUP. The bundled resources are used if empty")

	authEnable     = flag.Bool("auth.enable", false, "Whether token routes require a bearer token issued by sample.Login")
	authSigningKey = flag.String("auth.signingKey", "", "Key for signing tokens, at least 16 bytes. A random key is generated if empty, so tokens do not survive restarts")
	authTokenTTL   = flag.Duration("auth.tokenTTL", 12*time.Hour, "Lifetime of issued tokens")

	dbURL = flag.String("db.url", "", "PostgreSQL connection URL for loading role ACLs from the fw_role_acl table. Role ACLs are disabled if empty")
)

//go:embed resources.yaml
var defaultResources []byte

func init() {
	lflag.RegisterSecretFlag("db.url")
}

func main() {
	// Write flags and help message to stdout, since it is easier to grep or pipe.
	flag.CommandLine.SetOutput(os.Stdout)
	flag.Usage = usage
	lflag.Parse()
	buildinfo.Init()
	logger.Init()
	defer profile.Profile().Stop()

	listenAddrs := *httpListenAddrs
	if len(listenAddrs) == 0 {
		listenAddrs = []string{":8428"}
	}

	logger.Infof("starting wedge-server at %q...", listenAddrs)
	logFlags()
	startTime := time.Now()

	res := mustLoadResources()
	app := appcontext.New(*applicationID, *contextPath, *authEnable)

	var roles *db.RoleStore
	if *dbURL != "" {
		pool := mustOpenDB()
		defer pool.Close()
		roles = db.NewRoleStore(pool)
		refreshRoles(roles, app)
	}

	issuer, err := auth.NewIssuer(signingKey(), *authTokenTTL, app)
	if err != nil {
		logger.Fatalf("cannot initialize token issuer: %s", err)
	}

	s := scheme.NewScheme()
	if err := sample.Register(s, sample.Deps{
		Issuer:    issuer,
		Users:     res,
		Messages:  res,
		Converter: converter.New(),
	}); err != nil {
		logger.Fatalf("cannot register handlers: %s", err)
	}
	executor := dispatch.NewExecutor(s, res, res)
	res.OnReload(executor.ResetRouteCache)

	h, err := handler.NewAPIServerHandler("wedge-server", *contextPath, executor,
		filters.TokenFilter(issuer, app, executor.WriteTokenError))
	if err != nil {
		logger.Fatalf("cannot create API handler: %s", err)
	}

	go httpserver.Serve(listenAddrs, h.RequestHandler, httpserver.ServerOptions{
		UseProxyProtocol: useProxyProtocol,
	})
	logger.Infof("started wedge-server in %.3f seconds; registered handlers: %s", time.Since(startTime).Seconds(), s.KnownTypes())

	stopCh := make(chan struct{})
	go reloadOnSighup(stopCh, res, roles, app)

	sig := procutil.WaitForSigterm()
	logger.Infof("received signal: %v", sig)
	close(stopCh)

	logger.Infof("gracefully shutting down wedge-server at %q", listenAddrs)
	startTime = time.Now()
	if err := httpserver.Stop(listenAddrs); err != nil {
		logger.Fatalf("cannot stop the wedge-server: %s", err)
	}
	logger.Infof("the wedge-server has been stopped in %.3f seconds", time.Since(startTime).Seconds())
}

func mustLoadResources() *resources.Resources {
	if *resourcesFile == "" {
		res, err := resources.Parse(defaultResources)
		if err != nil {
			logger.Fatalf("cannot parse bundled resources: %s", err)
		}
		return res
	}
	res, err := resources.Load(*resourcesFile)
	if err != nil {
		logger.Fatalf("cannot load -resources.file=%q: %s", *resourcesFile, err)
	}
	logger.Infof("loaded %d resources from %q", len(res.Keys()), *resourcesFile)
	return res
}

func mustOpenDB() *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := db.Open(ctx, *dbURL)
	if err != nil {
		logger.Fatalf("cannot connect to -db.url: %s", err)
	}
	return pool
}

func refreshRoles(roles *db.RoleStore, app *appcontext.ApplicationContext) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := roles.Refresh(ctx, app); err != nil {
		logger.Errorf("cannot refresh role ACLs: %s", err)
		return
	}
	logger.Infof("loaded %d role ACL entries", len(app.RoleACL()))
}

func signingKey() []byte {
	if *authSigningKey != "" {
		return []byte(*authSigningKey)
	}
	if *authEnable {
		logger.Warnf("-auth.signingKey is empty; tokens are signed with a random key")
	}
	return []byte(uuid.NewString())
}

func reloadOnSighup(stopCh <-chan struct{}, res *resources.Resources, roles *db.RoleStore, app *appcontext.ApplicationContext) {
	sighupCh := procutil.NewSighupChan()
	for {
		select {
		case <-stopCh:
			return
		case <-sighupCh:
		}
		logger.Infof("SIGHUP received; reloading resources and role ACLs")
		if *resourcesFile != "" {
			if err := res.Reload(); err != nil {
				logger.Errorf("cannot reload -resources.file=%q; keeping the previous resources: %s", *resourcesFile, err)
			}
		}
		if roles != nil {
			refreshRoles(roles, app)
		}
	}
}

func usage() {
	const s = `
wedge-server exposes application handlers over a uniform JSON REST API.

Every response is HTTP 200 with the outcome in return_cd and return_msg.

`
	lflag.Usage(s + profile.HelpMessage())
}

func logFlags() {
	var b strings.Builder
	lflag.WriteFlags(&b)
	if b.Len() > 0 {
		logger.Infof("command-line flags:\n%s", strings.TrimSuffix(b.String(), "\n"))
	}
}
