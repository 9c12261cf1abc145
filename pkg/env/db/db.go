package db

import (
	"net"
	"net/url"
	"os"
	"strconv"

	"github.com/go-sql-driver/mysql"

	"github.com/app-sre/connect-ai/pkg/env"
)

type DBEnv struct {
	Driver     DriverType
	Host       string
	Port       int
	Username   string
	Password   string
	Name       string
	AllowWrite bool
}

func NewDBEnv() *DBEnv {
	return &DBEnv{}
}

func (d *DBEnv) Populate() error {
	driver := os.Getenv("DB_DRIVER")
	if driver == "" {
		return &env.Error{Name: "DB_DRIVER"}
	}
	d.Driver = DriverType(driver)

	if !d.Driver.IsValid() {
		return &DriverError{Driver: driver}
	}

	host := os.Getenv("DB_HOST")
	if host == "" {
		return &env.Error{Name: "DB_HOST"}
	}
	d.Host = host

	d.Port = d.Driver.Port()
	if s := os.Getenv("DB_PORT"); s != "" {
		port, err := strconv.Atoi(s)
		if err != nil {
			return &env.TypeError{Name: "DB_PORT"}
		}
		d.Port = port
	}

	user := os.Getenv("DB_USER")
	if user == "" {
		return &env.Error{Name: "DB_USER"}
	}
	d.Username = user

	pass := os.Getenv("DB_PASS")
	if pass == "" {
		return &env.Error{Name: "DB_PASS"}
	}
	d.Password = pass

	name := os.Getenv("DB_NAME")
	if name == "" {
		return &env.Error{Name: "DB_NAME"}
	}
	d.Name = name

	if s := os.Getenv("DB_WRITE"); s != "" {
		write, err := strconv.ParseBool(s)
		if err != nil {
			return &env.TypeError{Name: "DB_WRITE"}
		}
		d.AllowWrite = write
	}

	return nil
}

func (d *DBEnv) ConnectionDSN() string {
	address := net.JoinHostPort(d.Host, strconv.Itoa(d.Port))

	switch d.Driver.Name() {
	case driverMySQL:
		config := mysql.NewConfig()
		config.User = d.Username
		config.Passwd = d.Password
		config.Net = "tcp"
		config.Addr = address
		config.DBName = d.Name
		return config.FormatDSN()
	case driverPostgreSQL:
		u := &url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(d.Username, d.Password),
			Host:   address,
			Path:   "/" + d.Name,
		}
		return u.String()
	default:
		return ""
	}
}

type DriverError struct {
	Driver string
}

func (e *DriverError) Error() string {
	return "unable to use driver type: " + e.Driver
}
