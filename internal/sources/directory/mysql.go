package directory

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// MySQLOpener connects to the directory's MySQL server. Each call opens a
// small dedicated pool that release closes.
func MySQLOpener(timeout time.Duration) Opener {
	return func(ctx context.Context, s Settings) (*sql.DB, func(), error) {
		cfg := mysql.NewConfig()
		cfg.User = s.User
		cfg.Passwd = s.Password
		cfg.Net = "tcp"
		cfg.Addr = hostPort(s.Host, s.Port)
		cfg.DBName = s.Database
		cfg.Timeout = timeout
		cfg.ReadTimeout = timeout
		cfg.WriteTimeout = timeout
		cfg.ParseTime = true

		connector, err := mysql.NewConnector(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("mysql connector: %w", err)
		}
		db := sql.OpenDB(connector)
		db.SetMaxOpenConns(2)
		db.SetConnMaxLifetime(time.Minute)

		pingCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return db, func() { _ = db.Close() }, nil
	}
}

func hostPort(host, port string) string {
	if strings.Contains(host, ":") {
		return host
	}
	if port == "" {
		port = "3306"
	}
	return net.JoinHostPort(host, port)
}
