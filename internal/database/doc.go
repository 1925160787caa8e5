// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 负责打开 GORM 连接并管理连接池，群组的 SQL 存储与
迁移工具都从这里取得连接。

# 核心类型

  - Open：按驱动名（postgres / mysql / sqlite / sqlite3）打开连接，
    sqlite 使用纯 Go 的 glebarez 驱动
  - PoolManager：连接池管理器，配置空闲与最大连接数，后台定时探活，
    并通过 StatsRecorder 上报连接数
  - TransactionWithRetry：事务执行，死锁、序列化失败与断连时指数退避重试
*/
package database
